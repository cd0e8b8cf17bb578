package catalog

import (
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
)

// Matrix is a dense N×N similarity matrix stored row-major.
type Matrix struct {
	n    int
	data []float32
}

// NewMatrix wraps data as an n×n matrix. The slice is retained, not copied.
func NewMatrix(n int, data []float32) (*Matrix, error) {
	if n < 0 || len(data) != n*n {
		return nil, fmt.Errorf("matrix of dimension %d needs %d scores, got %d: %w",
			n, n*n, len(data), apperrors.ErrArtifactMismatch)
	}
	return &Matrix{n: n, data: data}, nil
}

// Dim returns N.
func (m *Matrix) Dim() int {
	return m.n
}

// Row returns the scores of row i. Callers must not modify the slice.
func (m *Matrix) Row(i int) ([]float32, error) {
	if i < 0 || i >= m.n {
		return nil, fmt.Errorf("row %d of %d: %w", i, m.n, apperrors.ErrInvalidIndex)
	}
	start := i * m.n
	return m.data[start : start+m.n : start+m.n], nil
}

// At returns sim[i][j] without bounds translation; it panics like a slice
// index when i or j is out of range.
func (m *Matrix) At(i, j int) float32 {
	return m.data[i*m.n+j]
}

// Asymmetry returns the largest |sim[i][j] - sim[j][i]| and the cell where it
// occurs. A well-formed artifact returns 0.
func (m *Matrix) Asymmetry() (maxDiff float64, i, j int) {
	for r := 0; r < m.n; r++ {
		for c := r + 1; c < m.n; c++ {
			d := math.Abs(float64(m.At(r, c)) - float64(m.At(c, r)))
			if d > maxDiff {
				maxDiff, i, j = d, r, c
			}
		}
	}
	return maxDiff, i, j
}

// SelfNotMaximal lists rows whose diagonal score is below another entry in
// the same row.
func (m *Matrix) SelfNotMaximal() []int {
	var rows []int
	for r := 0; r < m.n; r++ {
		self := m.At(r, r)
		for c := 0; c < m.n; c++ {
			if c != r && m.At(r, c) > self {
				rows = append(rows, r)
				break
			}
		}
	}
	return rows
}
