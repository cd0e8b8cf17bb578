package artifact

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WriteMatrix encodes an n×n row-major matrix in .simx format.
func WriteMatrix(w io.Writer, n int, data []float32) error {
	if n < 0 || len(data) != n*n {
		return fmt.Errorf("matrix of dimension %d needs %d scores, got %d", n, n*n, len(data))
	}
	bodySize := uint64(n) * uint64(n) * 4

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(n))
	binary.LittleEndian.PutUint32(header[12:16], ElemFloat32)
	binary.LittleEndian.PutUint64(header[16:24], bodySize)

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	crc := crc32.NewIEEE()
	buf := make([]byte, 4)
	for _, v := range data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		crc.Write(buf)
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("writing body: %w", err)
		}
	}
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc.Sum32())
	binary.LittleEndian.PutUint32(footer[4:8], MagicBytes)
	if _, err := bw.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	return bw.Flush()
}

// WriteMatrixFile writes the matrix to a temp file and renames it into place.
func WriteMatrixFile(path string, n int, data []float32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp artifact file: %w", err)
	}
	if err := WriteMatrix(f, n, data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing artifact file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing artifact file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming artifact file: %w", err)
	}
	return nil
}

// ParseMatrixCSV reads a headerless square matrix of decimal scores, one row
// per line, and returns its dimension and row-major data.
func ParseMatrixCSV(r io.Reader) (int, []float32, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	var (
		n    = -1
		data []float32
		row  int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, nil, fmt.Errorf("reading matrix row %d: %w", row, err)
		}
		if n < 0 {
			n = len(rec)
			data = make([]float32, 0, n*n)
		}
		if len(rec) != n {
			return 0, nil, fmt.Errorf("matrix row %d has %d columns, want %d", row, len(rec), n)
		}
		for col, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
			if err != nil {
				return 0, nil, fmt.Errorf("matrix cell (%d,%d): %w", row, col, err)
			}
			data = append(data, float32(v))
		}
		row++
	}
	if n < 0 {
		return 0, []float32{}, nil
	}
	if row != n {
		return 0, nil, fmt.Errorf("matrix has %d rows and %d columns", row, n)
	}
	return n, data, nil
}
