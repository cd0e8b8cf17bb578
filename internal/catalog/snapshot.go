package catalog

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
)

// Snapshot bundles the catalog and its aligned similarity matrix. It is
// built once at startup and handed to every component that reads it.
type Snapshot struct {
	Store  *Store
	Matrix *Matrix
}

// NewSnapshot pairs store and matrix, failing when their sizes disagree.
func NewSnapshot(store *Store, matrix *Matrix) (*Snapshot, error) {
	if store == nil || matrix == nil {
		return nil, fmt.Errorf("snapshot needs both catalog and matrix: %w", apperrors.ErrArtifactMismatch)
	}
	if store.Len() != matrix.Dim() {
		return nil, fmt.Errorf("catalog has %d items but matrix dimension is %d: %w",
			store.Len(), matrix.Dim(), apperrors.ErrArtifactMismatch)
	}
	return &Snapshot{Store: store, Matrix: matrix}, nil
}

// Len returns the catalog size N.
func (s *Snapshot) Len() int {
	return s.Store.Len()
}
