package models

import "time"

// ImportJobFile represents one discovered file within an import job. It
// corresponds to the 'import_job_files' table.
//
// PhotoID is set if and only if the file completed successfully; the photo
// reference is the only link between the pipeline and the independent Photo
// lifecycle. Rows are created in bulk by the dispatcher, mutated only by
// workers (status transitions, retry increments) and bulk-deleted by the
// canceller.
type ImportJobFile struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	JobID        string    `gorm:"not null;index" json:"job_id"`
	DriveFileID  string    `gorm:"not null" json:"drive_file_id"`
	FileName     string    `gorm:"not null" json:"file_name"`
	MimeType     string    `gorm:"not null" json:"mime_type"`
	FileSize     int64     `gorm:"not null;default:0" json:"file_size"`
	Status       string    `gorm:"not null;index" json:"status"`
	RetryCount   int       `gorm:"not null;default:0" json:"retry_count"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	PhotoID      *string   `gorm:"index" json:"photo_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (ImportJobFile) TableName() string {
	return "import_job_files"
}
