package models

import (
	"math"
	"time"
)

// FaceEmbedding represents one face descriptor attached to a photo. It
// corresponds to the 'face_embeddings' table.
type FaceEmbedding struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PhotoID       string    `gorm:"not null;index" json:"photo_id"`
	FaceIndex     int       `gorm:"not null" json:"face_index"`                          // face_id reported by the scoring service
	EmbeddingData []byte    `gorm:"not null;column:embedding_data" json:"-"`             // embedding vector as little-endian float32 BLOB
	BBox          string    `gorm:"column:bbox" json:"bbox,omitempty"`                   // bounding box as JSON array
	Confidence    float32   `gorm:"not null;default:0" json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (FaceEmbedding) TableName() string {
	return "face_embeddings"
}

// GetEmbedding converts the BLOB data to []float32
func (fe *FaceEmbedding) GetEmbedding() []float32 {
	if len(fe.EmbeddingData) == 0 {
		return nil
	}

	embedding := make([]float32, len(fe.EmbeddingData)/4) // 4 bytes per float32
	for i := 0; i < len(embedding); i++ {
		offset := i * 4
		bits := uint32(fe.EmbeddingData[offset]) |
			uint32(fe.EmbeddingData[offset+1])<<8 |
			uint32(fe.EmbeddingData[offset+2])<<16 |
			uint32(fe.EmbeddingData[offset+3])<<24
		embedding[i] = math.Float32frombits(bits)
	}
	return embedding
}

// SetEmbedding converts []float32 to BLOB data
func (fe *FaceEmbedding) SetEmbedding(embedding []float32) {
	if len(embedding) == 0 {
		fe.EmbeddingData = nil
		return
	}

	fe.EmbeddingData = make([]byte, len(embedding)*4) // 4 bytes per float32
	for i, val := range embedding {
		offset := i * 4
		bits := math.Float32bits(val)
		fe.EmbeddingData[offset] = byte(bits)
		fe.EmbeddingData[offset+1] = byte(bits >> 8)
		fe.EmbeddingData[offset+2] = byte(bits >> 16)
		fe.EmbeddingData[offset+3] = byte(bits >> 24)
	}
}
