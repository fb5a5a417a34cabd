package models

import "time"

// ImportJob represents one user-initiated bulk import from an external
// folder tree. It corresponds to the 'import_jobs' table.
//
// Jobs are never physically deleted; cancellation is a terminal status.
// The incrementally maintained counters are a performance optimization:
// the authoritative values are derived from the file records by the
// reconciler, which requires processed_files == success_files + failed_files
// at every observation.
type ImportJob struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	RoomID         string     `gorm:"not null;index" json:"room_id"`
	FolderID       string     `gorm:"not null" json:"folder_id"`
	FolderName     string     `gorm:"not null" json:"folder_name"`
	CapturedAt     *time.Time `json:"captured_at,omitempty"` // optional capture-date override for all imported photos
	Status         string     `gorm:"not null;index" json:"status"`
	TotalFiles     int        `gorm:"not null;default:0" json:"total_files"`
	ProcessedFiles int        `gorm:"not null;default:0" json:"processed_files"`
	SuccessFiles   int        `gorm:"not null;default:0" json:"success_files"`
	FailedFiles    int        `gorm:"not null;default:0" json:"failed_files"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Files []ImportJobFile `gorm:"foreignKey:JobID" json:"files,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (ImportJob) TableName() string {
	return "import_jobs"
}
