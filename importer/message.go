package importer

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the queue payload for one discovered file. It carries
// everything a worker needs so that processing never calls back to the
// dispatcher.
type Message struct {
	JobID       string     `json:"job_id"`
	FileID      string     `json:"file_id"`
	DriveFileID string     `json:"drive_file_id"`
	FileName    string     `json:"file_name"`
	MimeType    string     `json:"mime_type"`
	FileSize    int64      `json:"file_size"`
	UserID      uint       `json:"user_id"`
	RoomID      string     `json:"room_id"`
	CapturedAt  *time.Time `json:"captured_at,omitempty"`
}

// Encode serializes a message for the queue
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode import message: %w", err)
	}
	return data, nil
}

// DecodeMessage parses a queue payload
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("failed to decode import message: %w", err)
	}
	return m, nil
}
