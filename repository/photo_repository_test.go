package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/photovaultbackend/models"
)

func TestCreateWithEmbeddingsRoundTrip(t *testing.T) {
	repo := NewPhotoRepository(setupTestDB(t))

	embedding := models.FaceEmbedding{FaceIndex: 0, Confidence: 0.93}
	embedding.SetEmbedding([]float32{0.1, 0.2, 0.3})

	photo := &models.Photo{
		StorageURL:   "http://localhost:8080/media/alice/p.jpg",
		Photographer: "alice@example.com",
		UploadedByID: 1,
		RoomID:       "room-1",
	}
	require.NoError(t, repo.CreateWithEmbeddings(photo, []models.FaceEmbedding{embedding}))
	assert.NotEmpty(t, photo.ID)

	loaded, err := repo.GetByID(photo.ID)
	require.NoError(t, err)
	require.Len(t, loaded.FaceEmbeddings, 1)
	assert.Equal(t, photo.ID, loaded.FaceEmbeddings[0].PhotoID)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, loaded.FaceEmbeddings[0].GetEmbedding(), 1e-6)
}

func TestCreateWithEmbeddingsNoFaces(t *testing.T) {
	repo := NewPhotoRepository(setupTestDB(t))

	photo := &models.Photo{StorageURL: "u", UploadedByID: 1, RoomID: "room-1"}
	require.NoError(t, repo.CreateWithEmbeddings(photo, nil))

	loaded, err := repo.GetByID(photo.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.FaceEmbeddings)
}

func TestDeleteByIDsRemovesPhotosAndEmbeddings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPhotoRepository(db)

	var photos []*models.Photo
	for i := 0; i < 3; i++ {
		e := models.FaceEmbedding{FaceIndex: 0}
		e.SetEmbedding([]float32{float32(i)})
		p := &models.Photo{StorageURL: "u", UploadedByID: 1, RoomID: "room-1"}
		require.NoError(t, repo.CreateWithEmbeddings(p, []models.FaceEmbedding{e}))
		photos = append(photos, p)
	}

	deleted, err := repo.DeleteByIDs([]string{photos[0].ID, photos[1].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = repo.GetByID(photos[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	remaining, err := repo.ListEmbeddings()
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, photos[2].ID, remaining[0].PhotoID)
}

func TestDeleteByIDsEmptyIsNoop(t *testing.T) {
	repo := NewPhotoRepository(setupTestDB(t))
	deleted, err := repo.DeleteByIDs(nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestGetByIDs(t *testing.T) {
	repo := NewPhotoRepository(setupTestDB(t))

	p1 := &models.Photo{StorageURL: "u1", UploadedByID: 1, RoomID: "room-1"}
	p2 := &models.Photo{StorageURL: "u2", UploadedByID: 1, RoomID: "room-1"}
	require.NoError(t, repo.CreateWithEmbeddings(p1, nil))
	require.NoError(t, repo.CreateWithEmbeddings(p2, nil))

	photos, err := repo.GetByIDs([]string{p1.ID, p2.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, photos, 2)
}
