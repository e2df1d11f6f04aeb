package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"docintel/internal/domain"
)

// LoadRequest reads and validates the input JSON at path.
func LoadRequest(path string) (domain.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Request{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return DecodeRequest(f)
}

// DecodeRequest parses the input JSON; documents, persona and job_to_be_done
// are all required and must not be null.
func DecodeRequest(r io.Reader) (domain.Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Request{}, fmt.Errorf("read input: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return domain.Request{}, fmt.Errorf("decode input: %v: %w", err, domain.ErrInvalidRequest)
	}
	for _, key := range requiredKeys {
		if v, ok := fields[key]; !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return domain.Request{}, fmt.Errorf("missing key %q: %w", key, domain.ErrInvalidRequest)
		}
	}
	var req domain.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.Request{}, fmt.Errorf("decode input: %v: %w", err, domain.ErrInvalidRequest)
	}
	return req, nil
}

var requiredKeys = []string{"documents", "persona", "job_to_be_done"}

// EncodeDigest writes the digest as two-space indented JSON.
func EncodeDigest(w io.Writer, d *domain.Digest) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// WriteDigest writes the digest to path.
func WriteDigest(path string, d *domain.Digest) error {
	var buf bytes.Buffer
	if err := EncodeDigest(&buf, d); err != nil {
		return fmt.Errorf("encode digest: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
