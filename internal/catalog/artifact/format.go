// Package artifact decodes the precomputed catalog and similarity-matrix
// artifacts into a catalog.Snapshot, and encodes matrices for tooling.
//
// The catalog artifact is CSV with a header row naming at least the "id" and
// "title" columns; row order defines catalog positions.
//
// The matrix artifact (.simx) is little-endian binary:
//
//	header (32 bytes): magic u32 | version u32 | dim u32 | elemType u32 | bodySize u64 | reserved u64
//	body:              dim*dim float32, row-major, aligned to catalog order
//	footer (8 bytes):  crc32(body) u32 | magic u32
package artifact

const (
	MagicBytes    uint32 = 0x53494D58 // "SIMX"
	FormatVersion uint32 = 1
	HeaderSize    int    = 32
	FooterSize    int    = 8

	ElemFloat32 uint32 = 1
)

// MatrixHeader is the fixed-size header at the start of every .simx file.
type MatrixHeader struct {
	Magic    uint32
	Version  uint32
	Dim      uint32
	ElemType uint32
	BodySize uint64
}
