package compressor

import (
	"bytes"
	"fmt"

	"github.com/semmidev/omran/internal/domain"
)

const (
	AlgorithmGzip = "gzip"
	AlgorithmZstd = "zstd"
	AlgorithmLZ4  = "lz4"
)

var magic = map[string][]byte{
	AlgorithmGzip: {0x1f, 0x8b},
	AlgorithmZstd: {0x28, 0xb5, 0x2f, 0xfd},
	AlgorithmLZ4:  {0x04, 0x22, 0x4d, 0x18},
}

// Get returns the compressor for an algorithm name; the empty name selects
// gzip.
func Get(algorithm string) (domain.Compressor, error) {
	switch algorithm {
	case "", AlgorithmGzip:
		return NewGzip(), nil
	case AlgorithmZstd:
		return NewZstd(), nil
	case AlgorithmLZ4:
		return NewLZ4(), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

// Detect identifies a compressed stream by its magic bytes.
func Detect(data []byte) (domain.Compressor, bool) {
	for name, m := range magic {
		if bytes.HasPrefix(data, m) {
			c, _ := Get(name)
			return c, true
		}
	}
	return nil, false
}
