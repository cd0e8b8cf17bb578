package artifact

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
)

const catalogCSV = `id,title,overview
19995,Avatar,"Pandora, 2154"
285,Pirates of the Caribbean: At World's End,
206647,Spectre,
49026,The Dark Knight Rises,
`

func encodeMatrix(t *testing.T, n int, data []float32) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteMatrix(&buf, n, data); err != nil {
		t.Fatalf("WriteMatrix: %v", err)
	}
	return buf.Bytes()
}

func identity(n int) []float32 {
	data := make([]float32, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	return data
}

func TestReadCatalog(t *testing.T) {
	items, err := ReadCatalog(strings.NewReader(catalogCSV))
	if err != nil {
		t.Fatalf("ReadCatalog: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("got %d items, want 4", len(items))
	}
	if items[1].Title != "Pirates of the Caribbean: At World's End" || items[1].ExternalID != 285 || items[1].Position != 1 {
		t.Errorf("items[1] = %+v", items[1])
	}
}

func TestReadCatalogColumnOrderAndBOM(t *testing.T) {
	items, err := ReadCatalog(strings.NewReader("\ufefftitle,id\nHeat,949\n"))
	if err != nil {
		t.Fatal(err)
	}
	if items[0].Title != "Heat" || items[0].ExternalID != 949 {
		t.Errorf("items[0] = %+v", items[0])
	}
}

func TestReadCatalogMalformed(t *testing.T) {
	inputs := map[string]string{
		"empty":      "",
		"no title":   "id,name\n1,x\n",
		"bad id":     "id,title\nabc,Heat\n",
		"short row":  "title,overview,id\nHeat\n",
		"bad quotes": "id,title\n1,\"Heat\n",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadCatalog(strings.NewReader(in)); !errors.Is(err, apperrors.ErrArtifactMismatch) {
				t.Errorf("error = %v, want ErrArtifactMismatch", err)
			}
		})
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	data := []float32{1, 0.9, 0.2, 0.9, 1, 0.4, 0.2, 0.4, 1}
	m, err := ReadMatrix(encodeMatrix(t, 3, data))
	if err != nil {
		t.Fatalf("ReadMatrix: %v", err)
	}
	if m.Dim() != 3 {
		t.Fatalf("Dim() = %d", m.Dim())
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if m.At(i, j) != data[i*3+j] {
				t.Errorf("At(%d,%d) = %v, want %v", i, j, m.At(i, j), data[i*3+j])
			}
		}
	}
}

// emptyBodyMatrix builds a header claiming dim with a zero-length body and a
// footer whose checksum matches that empty body.
func emptyBodyMatrix(dim uint32) []byte {
	b := make([]byte, HeaderSize+FooterSize)
	binary.LittleEndian.PutUint32(b[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(b[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(b[8:12], dim)
	binary.LittleEndian.PutUint32(b[12:16], ElemFloat32)
	binary.LittleEndian.PutUint64(b[16:24], 0)
	binary.LittleEndian.PutUint32(b[HeaderSize:], 0)
	binary.LittleEndian.PutUint32(b[HeaderSize+4:], MagicBytes)
	return b
}

func TestReadMatrixRejectsCorruption(t *testing.T) {
	good := encodeMatrix(t, 2, identity(2))
	corrupt := func(mut func(b []byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return mut(b)
	}
	cases := map[string][]byte{
		"too short": good[:10],
		"bad magic": corrupt(func(b []byte) []byte { b[0] ^= 0xff; return b }),
		"bad version": corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[4:8], 9)
			return b
		}),
		"flipped body bit": corrupt(func(b []byte) []byte { b[HeaderSize+1] ^= 0x01; return b }),
		"truncated":        good[:len(good)-1],
		"trailing bytes":   append(append([]byte(nil), good...), 0),
		"nan cell": encodeMatrix(t, 2, []float32{1, float32(math.NaN()), 0, 1}),
		"dim lies": corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[8:12], 3)
			return b
		}),
		"dim overflows body size": emptyBodyMatrix(1 << 31),
		"dim with empty body":     emptyBodyMatrix(1 << 16),
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadMatrix(blob); !errors.Is(err, apperrors.ErrArtifactMismatch) {
				t.Errorf("error = %v, want ErrArtifactMismatch", err)
			}
		})
	}
}

func TestLoadDimensionMismatch(t *testing.T) {
	_, err := Load([]byte(catalogCSV), encodeMatrix(t, 3, identity(3)))
	if !errors.Is(err, apperrors.ErrArtifactMismatch) {
		t.Fatalf("error = %v, want ErrArtifactMismatch", err)
	}
	snap, err := Load([]byte(catalogCSV), encodeMatrix(t, 4, identity(4)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if pos, _ := snap.Store.Resolve("Spectre"); pos != 2 {
		t.Errorf("Resolve(Spectre) = %d", pos)
	}
}

func TestWriteMatrixFileAndLoadFiles(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "movies.csv")
	matrixPath := filepath.Join(dir, "nested", "sim.simx")
	if err := os.WriteFile(catalogPath, []byte(catalogCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteMatrixFile(matrixPath, 4, identity(4)); err != nil {
		t.Fatalf("WriteMatrixFile: %v", err)
	}
	if _, err := os.Stat(matrixPath + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
	snap, err := LoadFiles(catalogPath, matrixPath)
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if snap.Len() != 4 {
		t.Errorf("Len() = %d", snap.Len())
	}
	if _, err := LoadFiles(filepath.Join(dir, "missing.csv"), matrixPath); err == nil {
		t.Error("expected error for missing catalog file")
	}
}

func TestParseMatrixCSV(t *testing.T) {
	n, data, err := ParseMatrixCSV(strings.NewReader("1,0.5\n0.5, 1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || len(data) != 4 || data[1] != 0.5 || data[3] != 1 {
		t.Errorf("got n=%d data=%v", n, data)
	}
	if _, _, err := ParseMatrixCSV(strings.NewReader("1,0.5\n0.5,1\n0.1,0.2\n")); err == nil {
		t.Error("expected error for non-square matrix")
	}
	if _, _, err := ParseMatrixCSV(strings.NewReader("1,x\nx,1\n")); err == nil {
		t.Error("expected error for non-numeric cell")
	}
}
