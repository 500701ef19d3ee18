package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/semmidev/omran/internal/domain"
)

// Digest returns the SHA-256 of the canonical JSON form of data. Object keys
// are emitted in sorted order at every depth, so equal data always yields
// the same digest.
func Digest(data map[string]any) (string, error) {
	canonical, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("canonicalize data: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyChecksum recomputes the digest of a record's data and compares it
// with the recorded one.
func VerifyChecksum(record *domain.BackupRecord) (bool, string, error) {
	actual, err := Digest(record.Data)
	if err != nil {
		return false, "", err
	}
	return actual == record.Metadata.Checksum, actual, nil
}
