package artifact

import (
	"bytes"
	"fmt"
	"testing"
)

// BenchmarkReadMatrix measures decode and checksum verification of a
// packed similarity matrix.
func BenchmarkReadMatrix(b *testing.B) {
	for _, n := range []int{500, 2000} {
		data := make([]float32, n*n)
		for i := range data {
			data[i] = float32(i%997) / 997
		}
		var buf bytes.Buffer
		if err := WriteMatrix(&buf, n, data); err != nil {
			b.Fatal(err)
		}
		blob := buf.Bytes()

		b.Run(fmt.Sprintf("dim_%d", n), func(b *testing.B) {
			b.SetBytes(int64(len(blob)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := ReadMatrix(blob); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
