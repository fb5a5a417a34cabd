package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkBodies(t *testing.T) {
	bodies := make([][]byte, 25)
	for i := range bodies {
		bodies[i] = []byte{byte(i)}
	}

	tests := []struct {
		name      string
		batchSize int
		wantLens  []int
	}{
		{"even split", 5, []int{5, 5, 5, 5, 5}},
		{"uneven tail", 10, []int{10, 10, 5}},
		{"batch larger than input", 100, []int{25}},
		{"zero batch size falls back to one", 0, func() []int {
			lens := make([]int, 25)
			for i := range lens {
				lens[i] = 1
			}
			return lens
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkBodies(bodies, tt.batchSize)
			lens := make([]int, len(chunks))
			total := 0
			for i, c := range chunks {
				lens[i] = len(c)
				total += len(c)
			}
			assert.Equal(t, tt.wantLens, lens)
			assert.Equal(t, len(bodies), total)
		})
	}
}

func TestChunkBodiesEmpty(t *testing.T) {
	assert.Nil(t, ChunkBodies(nil, 10))
}

// a consumer dying between the list move and the deadline stamp leaves a
// processing entry with no deadline; the sweep must find exactly those
func TestUnstampedMembers(t *testing.T) {
	tests := []struct {
		name    string
		members []string
		scores  []float64
		want    []string
	}{
		{"all stamped", []string{"a", "b"}, []float64{1700000000000, 1700000000001}, nil},
		{"one orphan", []string{"a", "b", "c"}, []float64{1700000000000, 0, 1700000000001}, []string{"b"}},
		{"all orphaned", []string{"a", "b"}, []float64{0, 0}, []string{"a", "b"}},
		{"empty", nil, nil, nil},
		{"short score slice ignored", []string{"a", "b"}, []float64{0}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, unstampedMembers(tt.members, tt.scores))
		})
	}
}
