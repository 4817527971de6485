// Package profile reduces each creator's reel embeddings into one aesthetic
// profile vector, the first stage of the analysis pipeline.
package profile

import (
	"fmt"
	"sort"

	apperrors "github.com/molchalih/inst2txt/internal/core/errors"
)

// Profile is one creator's aggregate aesthetic signature: the arithmetic mean
// of its reel embeddings and the number of embeddings that went into it.
type Profile struct {
	Vector     []float32
	SampleSize int
}

// Set is the immutable output of the aggregation stage. Rows are ordered by
// ascending creator id so downstream stages see a stable matrix regardless of
// map iteration order.
type Set struct {
	IDs     []int64
	Vectors [][]float32
	Samples []int
	Skipped []int64
	Dim     int
}

// Aggregate returns the coordinate-wise arithmetic mean of the given embedding
// vectors. The mean is accumulated in float64 to keep it invariant to input
// order. An empty set fails with ErrInsufficientData; vectors of inconsistent
// dimension fail with ErrDimensionMismatch.
func Aggregate(embeddings [][]float32) ([]float32, error) {
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("aggregation requires at least one embedding, got 0: %w", apperrors.ErrInsufficientData)
	}

	dim := len(embeddings[0])
	if dim == 0 {
		return nil, fmt.Errorf("aggregation got a zero-length embedding: %w", apperrors.ErrInsufficientData)
	}

	sums := make([]float64, dim)

	for i, emb := range embeddings {
		if len(emb) != dim {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d: %w", i, len(emb), dim, apperrors.ErrDimensionMismatch)
		}

		for j, v := range emb {
			sums[j] += float64(v)
		}
	}

	mean := make([]float32, dim)
	for j, s := range sums {
		mean[j] = float32(s / float64(len(embeddings)))
	}

	return mean, nil
}

// Build aggregates one profile per creator. Creators with zero embeddings are
// excluded from the set and recorded in Skipped. Build fails with
// ErrInsufficientData when no creator has any embeddings, and with
// ErrDimensionMismatch when profiles of different creators disagree on
// dimension, since all profiles feed one matrix downstream.
func Build(embeddingsByCreator map[int64][][]float32) (*Set, error) {
	ids := make([]int64, 0, len(embeddingsByCreator))
	for id := range embeddingsByCreator {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	set := &Set{
		IDs:     make([]int64, 0, len(ids)),
		Vectors: make([][]float32, 0, len(ids)),
		Samples: make([]int, 0, len(ids)),
	}

	for _, id := range ids {
		embeddings := embeddingsByCreator[id]
		if len(embeddings) == 0 {
			set.Skipped = append(set.Skipped, id)
			continue
		}

		vec, err := Aggregate(embeddings)
		if err != nil {
			return nil, fmt.Errorf("creator %d: %w", id, err)
		}

		if set.Dim == 0 {
			set.Dim = len(vec)
		} else if len(vec) != set.Dim {
			return nil, fmt.Errorf("creator %d profile has dimension %d, expected %d: %w", id, len(vec), set.Dim, apperrors.ErrDimensionMismatch)
		}

		set.IDs = append(set.IDs, id)
		set.Vectors = append(set.Vectors, vec)
		set.Samples = append(set.Samples, len(embeddings))
	}

	if len(set.IDs) == 0 {
		return nil, fmt.Errorf("no creator has embeddings: %w", apperrors.ErrInsufficientData)
	}

	return set, nil
}

// Len returns the number of creators in the set.
func (s *Set) Len() int {
	return len(s.IDs)
}
