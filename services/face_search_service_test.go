package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/photovaultbackend/embeddings"
	"github.com/camden-git/photovaultbackend/models"
	"github.com/camden-git/photovaultbackend/repository"
)

// fakePhotoRepo serves a fixed embedding corpus
type fakePhotoRepo struct {
	photos     map[string]models.Photo
	embeddings []models.FaceEmbedding
}

func (r *fakePhotoRepo) CreateWithEmbeddings(photo *models.Photo, embs []models.FaceEmbedding) error {
	return errors.New("not implemented")
}

func (r *fakePhotoRepo) GetByID(id string) (*models.Photo, error) {
	p, ok := r.photos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *fakePhotoRepo) DeleteByIDs(ids []string) (int64, error) { return 0, nil }

func (r *fakePhotoRepo) ListEmbeddings() ([]models.FaceEmbedding, error) {
	return r.embeddings, nil
}

func (r *fakePhotoRepo) GetByIDs(ids []string) ([]models.Photo, error) {
	var out []models.Photo
	for _, id := range ids {
		if p, ok := r.photos[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeQueryScorer struct {
	faces []embeddings.Face
	err   error
}

func (s *fakeQueryScorer) ScoreURL(ctx context.Context, imageURL string) ([]embeddings.Face, error) {
	return s.faces, s.err
}

func (s *fakeQueryScorer) ScoreBytes(ctx context.Context, data []byte, filename string) ([]embeddings.Face, error) {
	return s.faces, s.err
}

func storedEmbedding(photoID string, vec []float32) models.FaceEmbedding {
	e := models.FaceEmbedding{PhotoID: photoID, FaceIndex: 0}
	e.SetEmbedding(vec)
	return e
}

func newSearchFixture(queryFaces []embeddings.Face) (*FaceSearchService, *fakePhotoRepo) {
	repo := &fakePhotoRepo{
		photos: map[string]models.Photo{
			"p1": {ID: "p1", StorageURL: "u1"},
			"p2": {ID: "p2", StorageURL: "u2"},
			"p3": {ID: "p3", StorageURL: "u3"},
		},
		embeddings: []models.FaceEmbedding{
			storedEmbedding("p1", []float32{1, 0}),  // identical to the query face
			storedEmbedding("p2", []float32{1, 1}),  // 45 degrees off
			storedEmbedding("p3", []float32{-1, 0}), // opposite
		},
	}
	return NewFaceSearchService(repo, &fakeQueryScorer{faces: queryFaces}), repo
}

func TestSearchRanksBySimilarity(t *testing.T) {
	svc, _ := newSearchFixture([]embeddings.Face{{FaceID: 0, Embedding: []float32{1, 0}}})

	matches, err := svc.Search(context.Background(), []byte("img"), "q.jpg", 10, 0)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "p1", matches[0].Photo.ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.Equal(t, "p2", matches[1].Photo.ID)
	assert.InDelta(t, 0.7071, matches[1].Similarity, 1e-3)
	assert.Equal(t, "p3", matches[2].Photo.ID)
	assert.InDelta(t, -1.0, matches[2].Similarity, 1e-6)

	// rows were hydrated with the full photo record
	assert.Equal(t, "u1", matches[0].Photo.StorageURL)
}

func TestSearchTakesBestFacePerPhoto(t *testing.T) {
	// two query faces; each stored photo keeps its best score
	svc, _ := newSearchFixture([]embeddings.Face{
		{FaceID: 0, Embedding: []float32{1, 0}},
		{FaceID: 1, Embedding: []float32{-1, 0}},
	})

	matches, err := svc.Search(context.Background(), []byte("img"), "q.jpg", 10, 0)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	// p3 matches the second query face perfectly
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.InDelta(t, 1.0, matches[1].Similarity, 1e-6)
}

func TestSearchPaginates(t *testing.T) {
	svc, _ := newSearchFixture([]embeddings.Face{{FaceID: 0, Embedding: []float32{1, 0}}})

	page, err := svc.Search(context.Background(), []byte("img"), "q.jpg", 1, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "p1", page[0].Photo.ID)

	page, err = svc.Search(context.Background(), []byte("img"), "q.jpg", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "p2", page[0].Photo.ID)

	page, err = svc.Search(context.Background(), []byte("img"), "q.jpg", 10, 99)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestSearchNoFacesInQuery(t *testing.T) {
	svc, _ := newSearchFixture(nil)

	_, err := svc.Search(context.Background(), []byte("img"), "q.jpg", 10, 0)
	assert.ErrorIs(t, err, ErrNoFacesFound)
}

func TestSearchScorerFailure(t *testing.T) {
	repo := &fakePhotoRepo{}
	svc := NewFaceSearchService(repo, &fakeQueryScorer{err: errors.New("service down")})

	_, err := svc.Search(context.Background(), []byte("img"), "q.jpg", 10, 0)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoFacesFound)
}

func TestCosineSimilarityEdgeCases(t *testing.T) {
	assert.Zero(t, cosineSimilarity(nil, nil))
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{3, 4}, []float32{3, 4}), 1e-9)
}
