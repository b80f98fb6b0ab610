package persist

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// The compression pass must stay lossless, deterministic and text-safe:
// the backend port stores strings, so the gzipped bytes travel base64
// encoded. gzip writers carry no timestamp here, keeping the output
// byte-identical for identical input.

// compressEntry gzips the serialized envelope and wraps it in base64.
func compressEntry(raw string) (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(raw)); err != nil {
		return "", fmt.Errorf("failed to compress entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize compressed entry: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decompressEntry reverses compressEntry. Any decode failure means the
// stored entry is not a valid compressed envelope.
func decompressEntry(stored string) (string, error) {
	compressed, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("stored entry is not valid base64: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", fmt.Errorf("stored entry is not valid gzip: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("failed to decompress entry: %w", err)
	}
	return string(raw), nil
}
