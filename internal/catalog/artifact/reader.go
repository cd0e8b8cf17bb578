package artifact

import (
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"math/bits"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
)

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), apperrors.ErrArtifactMismatch)
}

// ReadCatalog parses the catalog CSV. Columns other than id and title are ignored.
func ReadCatalog(r io.Reader) ([]catalog.Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, mismatch("reading catalog header: %v", err)
	}
	idCol, titleCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "id":
			idCol = i
		case "title":
			titleCol = i
		}
	}
	if idCol < 0 || titleCol < 0 {
		return nil, mismatch("catalog header %v lacks id/title columns", header)
	}

	items := make([]catalog.Item, 0, 1024)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, mismatch("reading catalog row %d: %v", line, err)
		}
		if idCol >= len(rec) || titleCol >= len(rec) {
			return nil, mismatch("catalog row %d has %d fields", line, len(rec))
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rec[idCol]), 10, 64)
		if err != nil {
			return nil, mismatch("catalog row %d: bad id %q", line, rec[idCol])
		}
		items = append(items, catalog.Item{
			Position:   len(items),
			Title:      rec[titleCol],
			ExternalID: id,
		})
	}
	return items, nil
}

// ReadMatrix decodes a .simx blob and verifies its checksum.
func ReadMatrix(blob []byte) (*catalog.Matrix, error) {
	if len(blob) < HeaderSize+FooterSize {
		return nil, mismatch("matrix artifact too short (%d bytes)", len(blob))
	}
	header := MatrixHeader{
		Magic:    binary.LittleEndian.Uint32(blob[0:4]),
		Version:  binary.LittleEndian.Uint32(blob[4:8]),
		Dim:      binary.LittleEndian.Uint32(blob[8:12]),
		ElemType: binary.LittleEndian.Uint32(blob[12:16]),
		BodySize: binary.LittleEndian.Uint64(blob[16:24]),
	}
	if header.Magic != MagicBytes {
		return nil, mismatch("invalid matrix artifact: bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, mismatch("unsupported matrix format version %d", header.Version)
	}
	if header.ElemType != ElemFloat32 {
		return nil, mismatch("unsupported element type %d", header.ElemType)
	}
	available := uint64(len(blob) - HeaderSize - FooterSize)
	if header.BodySize != available {
		return nil, mismatch("matrix artifact carries %d body bytes, header promises %d",
			available, header.BodySize)
	}
	// dim fits in 32 bits so dim*dim cannot overflow; the *4 can.
	n := uint64(header.Dim)
	if hi, size := bits.Mul64(n*n, 4); hi != 0 || size != header.BodySize {
		return nil, mismatch("body size %d does not match dimension %d", header.BodySize, n)
	}

	body := blob[HeaderSize : HeaderSize+int(header.BodySize)]
	footer := blob[HeaderSize+int(header.BodySize):]
	if binary.LittleEndian.Uint32(footer[4:8]) != MagicBytes {
		return nil, mismatch("matrix footer magic missing")
	}
	if want, got := binary.LittleEndian.Uint32(footer[0:4]), crc32.ChecksumIEEE(body); want != got {
		return nil, mismatch("matrix checksum %08x, footer says %08x", got, want)
	}

	data := make([]float32, n*n)
	for i := range data {
		v := math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, mismatch("matrix cell (%d,%d) is not finite", uint64(i)/n, uint64(i)%n)
		}
		data[i] = v
	}
	return catalog.NewMatrix(int(n), data)
}

// Load builds a Snapshot from the two artifact blobs.
func Load(catalogBlob, matrixBlob []byte) (*catalog.Snapshot, error) {
	items, err := ReadCatalog(bytes.NewReader(catalogBlob))
	if err != nil {
		return nil, err
	}
	matrix, err := ReadMatrix(matrixBlob)
	if err != nil {
		return nil, err
	}
	return catalog.NewSnapshot(catalog.NewStore(items), matrix)
}

// LoadFiles reads both artifacts from disk and calls Load.
func LoadFiles(catalogPath, matrixPath string) (*catalog.Snapshot, error) {
	catalogBlob, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("reading catalog artifact %s: %w", catalogPath, err)
	}
	matrixBlob, err := os.ReadFile(matrixPath)
	if err != nil {
		return nil, fmt.Errorf("reading matrix artifact %s: %w", matrixPath, err)
	}
	return Load(catalogBlob, matrixBlob)
}
