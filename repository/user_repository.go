package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camden-git/photovaultbackend/models"
)

// UserRepository handles database operations for User entities
type UserRepository struct {
	DB *gorm.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *models.User) error {
	if err := r.DB.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.DB.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// RoomRepository handles database operations for Room entities
type RoomRepository struct {
	DB *gorm.DB
}

// NewRoomRepository creates a new instance of RoomRepository
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{DB: db}
}

func (r *RoomRepository) Create(room *models.Room) error {
	if err := r.DB.Create(room).Error; err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (r *RoomRepository) GetByID(id string) (*models.Room, error) {
	var room models.Room
	err := r.DB.Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room %s: %w", id, err)
	}
	return &room, nil
}

func (r *RoomRepository) ListAll() ([]models.Room, error) {
	var rooms []models.Room
	if err := r.DB.Order("name").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// DriveAuthRepository handles database operations for stored provider credentials
type DriveAuthRepository struct {
	DB *gorm.DB
}

// NewDriveAuthRepository creates a new instance of DriveAuthRepository
func NewDriveAuthRepository(db *gorm.DB) *DriveAuthRepository {
	return &DriveAuthRepository{DB: db}
}

func (r *DriveAuthRepository) GetByUserID(userID uint) (*models.DriveAuth, error) {
	var auth models.DriveAuth
	err := r.DB.Where("user_id = ?", userID).First(&auth).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get drive auth for user %d: %w", userID, err)
	}
	return &auth, nil
}

// Upsert stores or replaces a user's credentials
func (r *DriveAuthRepository) Upsert(auth *models.DriveAuth) error {
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(auth).Error
	if err != nil {
		return fmt.Errorf("failed to upsert drive auth for user %d: %w", auth.UserID, err)
	}
	return nil
}

// UpdateAccessToken replaces the short-lived token after a refresh
func (r *DriveAuthRepository) UpdateAccessToken(userID uint, encryptedToken []byte, expiresAt time.Time) error {
	res := r.DB.Model(&models.DriveAuth{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"access_token": encryptedToken,
			"expires_at":   expiresAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update access token for user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
