package utils

import (
	"bytes"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// EncodeJSONLGZ encodes each item as one JSON line and gzips the result.
// The returned slice is owned by the caller.
func EncodeJSONLGZ[T any](items []T) ([]byte, error) {
	var buf bytes.Buffer

	gz, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}

	enc := json.NewEncoder(gz)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			gz.Close()
			return nil, err
		}
	}

	// Close writes the gzip footer
	if err := gz.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
