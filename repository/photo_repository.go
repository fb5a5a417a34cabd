package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camden-git/photovaultbackend/models"
)

// PhotoRepository handles database operations for Photo entities
type PhotoRepository struct {
	DB *gorm.DB
}

// NewPhotoRepository creates a new instance of PhotoRepository
func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{DB: db}
}

// CreateWithEmbeddings persists a photo together with its face embeddings in
// one transaction. The embedding set is written exactly once, at import
// time, and never recomputed.
func (r *PhotoRepository) CreateWithEmbeddings(photo *models.Photo, embeddings []models.FaceEmbedding) error {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(photo).Error; err != nil {
			return fmt.Errorf("failed to create photo: %w", err)
		}
		for i := range embeddings {
			embeddings[i].PhotoID = photo.ID
		}
		if len(embeddings) > 0 {
			if err := tx.Create(&embeddings).Error; err != nil {
				return fmt.Errorf("failed to create face embeddings for photo %s: %w", photo.ID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a photo, including its face embeddings
func (r *PhotoRepository) GetByID(id string) (*models.Photo, error) {
	var photo models.Photo
	err := r.DB.Preload("FaceEmbeddings").Where("id = ?", id).First(&photo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get photo %s: %w", id, err)
	}
	return &photo, nil
}

// DeleteByIDs bulk-deletes photos and their face embeddings, returning the
// number of photo rows removed
func (r *PhotoRepository) DeleteByIDs(ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("photo_id IN ?", ids).Delete(&models.FaceEmbedding{}).Error; err != nil {
			return fmt.Errorf("failed to delete face embeddings: %w", err)
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Photo{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete photos: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

// ListEmbeddings returns every stored face embedding, used by the
// similarity search service
func (r *PhotoRepository) ListEmbeddings() ([]models.FaceEmbedding, error) {
	var embeddings []models.FaceEmbedding
	if err := r.DB.Find(&embeddings).Error; err != nil {
		return nil, fmt.Errorf("failed to list face embeddings: %w", err)
	}
	return embeddings, nil
}

// GetByIDs fetches photos by id, preserving no particular order
func (r *PhotoRepository) GetByIDs(ids []string) ([]models.Photo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var photos []models.Photo
	if err := r.DB.Where("id IN ?", ids).Find(&photos).Error; err != nil {
		return nil, fmt.Errorf("failed to get photos by ids: %w", err)
	}
	return photos, nil
}
