package domain

type Compressor interface {
	Algorithm() string
	Compress(data []byte, level int) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}
