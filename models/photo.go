package models

import "time"

// Photo represents a persisted, indexed image. It corresponds to the
// 'photos' table. Photos are created both by the import pipeline and by
// direct upload paths; a pipeline-created photo carries exactly the face
// embeddings returned by the scoring call made during its processing.
type Photo struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	StorageURL   string     `gorm:"not null" json:"storage_url"`
	Photographer string     `json:"photographer"`
	UploadedByID uint       `gorm:"not null;index" json:"uploaded_by_id"`
	RoomID       string     `gorm:"not null;index" json:"room_id"`
	Metadata     string     `json:"metadata,omitempty"` // free-form JSON, stored as TEXT
	CapturedAt   *time.Time `gorm:"index" json:"captured_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	FaceEmbeddings []FaceEmbedding `gorm:"foreignKey:PhotoID;constraint:OnDelete:CASCADE" json:"face_embeddings,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Photo) TableName() string {
	return "photos"
}
