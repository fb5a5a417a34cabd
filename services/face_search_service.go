package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/camden-git/photovaultbackend/embeddings"
	"github.com/camden-git/photovaultbackend/models"
	"github.com/camden-git/photovaultbackend/repository"
)

// ErrNoFacesFound is returned when the query image contains no detectable face
var ErrNoFacesFound = errors.New("no faces found in query image")

// FaceMatch pairs a photo with its best similarity against the query faces
type FaceMatch struct {
	Photo      models.Photo `json:"photo"`
	Similarity float64      `json:"similarity"`
}

// FaceSearchService ranks stored photos by cosine similarity between their
// face embeddings and the faces found in a query image
type FaceSearchService struct {
	photos repository.PhotoRepositoryInterface
	scorer embeddings.Scorer
}

// NewFaceSearchService creates a face search service
func NewFaceSearchService(photos repository.PhotoRepositoryInterface, scorer embeddings.Scorer) *FaceSearchService {
	return &FaceSearchService{photos: photos, scorer: scorer}
}

// Search scores the query image, compares every stored embedding against each
// query face and returns photos ordered by their best similarity. A photo
// with several matching faces is returned once, with its highest score.
func (s *FaceSearchService) Search(ctx context.Context, imageData []byte, filename string, limit, offset int) ([]FaceMatch, error) {
	queryFaces, err := s.scorer.ScoreBytes(ctx, imageData, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to score query image: %w", err)
	}
	if len(queryFaces) == 0 {
		return nil, ErrNoFacesFound
	}

	stored, err := s.photos.ListEmbeddings()
	if err != nil {
		return nil, err
	}

	bestByPhoto := make(map[string]float64)
	for _, row := range stored {
		candidate := row.GetEmbedding()
		for _, face := range queryFaces {
			sim := cosineSimilarity(face.Embedding, candidate)
			if best, seen := bestByPhoto[row.PhotoID]; !seen || sim > best {
				bestByPhoto[row.PhotoID] = sim
			}
		}
	}

	ranked := make([]FaceMatch, 0, len(bestByPhoto))
	for photoID, sim := range bestByPhoto {
		ranked = append(ranked, FaceMatch{Photo: models.Photo{ID: photoID}, Similarity: sim})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		return ranked[i].Photo.ID < ranked[j].Photo.ID
	})

	if offset >= len(ranked) {
		return []FaceMatch{}, nil
	}
	ranked = ranked[offset:]
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	ids := make([]string, len(ranked))
	for i, m := range ranked {
		ids[i] = m.Photo.ID
	}
	photos, err := s.photos.GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Photo, len(photos))
	for _, p := range photos {
		byID[p.ID] = p
	}

	out := ranked[:0]
	for _, m := range ranked {
		photo, ok := byID[m.Photo.ID]
		if !ok {
			// embedding row outlived its photo; skip it
			continue
		}
		m.Photo = photo
		out = append(out, m)
	}
	return out, nil
}

// cosineSimilarity computes the cosine of the angle between two embedding
// vectors; mismatched or empty vectors score zero
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
