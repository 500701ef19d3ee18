package domain

import (
	"bytes"
	"errors"
	"io"

	"github.com/goccy/go-json"
)

// DecodeJSON decodes a single JSON document into v. Numbers landing in
// interface values stay json.Number, so integer ids beyond 2^53 survive a
// decode/encode cycle byte for byte.
func DecodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after the JSON document")
	}
	return nil
}
