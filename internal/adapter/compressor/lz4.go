package compressor

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

type LZ4Compressor struct{}

func NewLZ4() *LZ4Compressor {
	return &LZ4Compressor{}
}

func (l *LZ4Compressor) Algorithm() string {
	return AlgorithmLZ4
}

func lz4Level(level int) lz4.CompressionLevel {
	switch {
	case level == 0, level <= 3:
		return lz4.Fast
	case level <= 6:
		return lz4.Level5
	default:
		return lz4.Level9
	}
}

func (l *LZ4Compressor) Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	if err := writer.Apply(lz4.CompressionLevelOption(lz4Level(level))); err != nil {
		return nil, fmt.Errorf("failed to configure lz4 writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress with lz4: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish lz4 stream: %w", err)
	}
	return buf.Bytes(), nil
}

func (l *LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress lz4 data: %w", err)
	}
	return out, nil
}
