package catalog

import (
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
)

func TestNewMatrixDimension(t *testing.T) {
	if _, err := NewMatrix(2, []float32{1, 0.5, 0.5}); !errors.Is(err, apperrors.ErrArtifactMismatch) {
		t.Errorf("short data: error = %v, want ErrArtifactMismatch", err)
	}
	m, err := NewMatrix(2, []float32{1, 0.5, 0.5, 1})
	if err != nil {
		t.Fatal(err)
	}
	row, err := m.Row(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(row) != 2 || row[0] != 0.5 || row[1] != 1 {
		t.Errorf("Row(1) = %v", row)
	}
	if cap(row) != 2 {
		t.Errorf("Row capacity leaks into the next row: cap=%d", cap(row))
	}
	if _, err := m.Row(2); !errors.Is(err, apperrors.ErrInvalidIndex) {
		t.Errorf("Row(2) error = %v", err)
	}
}

func TestAsymmetryAndSelfMaximal(t *testing.T) {
	m, _ := NewMatrix(3, []float32{
		1, 0.2, 0.3,
		0.2, 1, 0.9,
		0.3, 0.7, 0.5,
	})
	diff, i, j := m.Asymmetry()
	if i != 1 || j != 2 || diff < 0.19 || diff > 0.21 {
		t.Errorf("Asymmetry() = %v at (%d,%d)", diff, i, j)
	}
	rows := m.SelfNotMaximal()
	if len(rows) != 1 || rows[0] != 2 {
		t.Errorf("SelfNotMaximal() = %v, want [2]", rows)
	}
}

func TestNewSnapshotMismatch(t *testing.T) {
	store := NewStore([]Item{{Title: "A"}, {Title: "B"}, {Title: "C"}})
	m, _ := NewMatrix(2, []float32{1, 0, 0, 1})
	if _, err := NewSnapshot(store, m); !errors.Is(err, apperrors.ErrArtifactMismatch) {
		t.Errorf("error = %v, want ErrArtifactMismatch", err)
	}
	if _, err := NewSnapshot(store, nil); !errors.Is(err, apperrors.ErrArtifactMismatch) {
		t.Errorf("nil matrix error = %v", err)
	}
}
