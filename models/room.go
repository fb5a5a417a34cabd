package models

import "time"

// Room represents a photo collection that imports target. It corresponds
// to the 'rooms' table.
type Room struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (Room) TableName() string {
	return "rooms"
}
