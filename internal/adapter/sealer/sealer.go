package sealer

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/semmidev/omran/internal/adapter/compressor"
	"github.com/semmidev/omran/internal/domain"
)

// Envelope layout:
//
//	magic "OMRN" | version | flags | len(algorithm) | algorithm | [salt] | body
//
// The body is the compressed payload, encrypted with AES-256-GCM (nonce
// prefixed) when the encrypted flag is set.
var envelopeMagic = []byte("OMRN")

const (
	envelopeVersion = 1

	flagCompressed = 1 << 0
	flagEncrypted  = 1 << 1

	saltSize         = 16
	keySize          = 32
	pbkdf2Iterations = 100000
)

var (
	ErrKeyRequired = errors.New("payload is encrypted and no key was given")
	ErrMalformed   = errors.New("malformed sealed payload")
)

type Sealer struct{}

func New() *Sealer {
	return &Sealer{}
}

// IsSealed reports whether data starts with the envelope magic.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, envelopeMagic)
}

func (s *Sealer) IsSealed(data []byte) bool {
	return IsSealed(data)
}

func (s *Sealer) Seal(payload []byte, opts domain.SealOptions) ([]byte, error) {
	if !opts.Enabled() {
		return payload, nil
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var flags byte
	algorithm := ""
	body := payload

	if opts.Compress {
		c, err := compressor.Get(opts.Algorithm)
		if err != nil {
			return nil, err
		}
		if body, err = c.Compress(body, opts.CompressionLevel); err != nil {
			return nil, fmt.Errorf("compress payload: %w", err)
		}
		flags |= flagCompressed
		algorithm = c.Algorithm()
	}

	var buf bytes.Buffer
	buf.Write(envelopeMagic)
	buf.WriteByte(envelopeVersion)

	if opts.Encrypt {
		flags |= flagEncrypted
	}
	buf.WriteByte(flags)
	buf.WriteByte(byte(len(algorithm)))
	buf.WriteString(algorithm)

	if opts.Encrypt {
		salt := make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		sealed, err := encrypt(body, deriveKey(opts.EncryptionKey, salt))
		if err != nil {
			return nil, err
		}
		buf.Write(salt)
		body = sealed
	}

	buf.Write(body)
	return buf.Bytes(), nil
}

// Open reverses Seal. Data without the envelope magic is returned unchanged.
func (s *Sealer) Open(data []byte, key string) ([]byte, error) {
	if !IsSealed(data) {
		return data, nil
	}

	rest := data[len(envelopeMagic):]
	if len(rest) < 3 {
		return nil, ErrMalformed
	}
	if rest[0] != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, rest[0])
	}
	flags := rest[1]
	algLen := int(rest[2])
	rest = rest[3:]
	if len(rest) < algLen {
		return nil, ErrMalformed
	}
	algorithm := string(rest[:algLen])
	body := rest[algLen:]

	if flags&flagEncrypted != 0 {
		if key == "" {
			return nil, ErrKeyRequired
		}
		if len(body) < saltSize {
			return nil, ErrMalformed
		}
		plain, err := decrypt(body[saltSize:], deriveKey(key, body[:saltSize]))
		if err != nil {
			return nil, err
		}
		body = plain
	}

	if flags&flagCompressed != 0 {
		c, err := compressor.Get(algorithm)
		if err != nil {
			return nil, err
		}
		out, err := c.Decompress(body)
		if err != nil {
			return nil, fmt.Errorf("decompress payload: %w", err)
		}
		body = out
	}

	return body, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
}

func encrypt(data, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

func decrypt(data, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("%w: encrypted data too short", ErrMalformed)
	}
	plain, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt data (wrong key?): %w", err)
	}
	return plain, nil
}
