package dataset

import (
	"fmt"

	"github.com/lehigh-university-libraries/ocrserver/internal/payload"
)

// Sample is one labeled image. Image holds the same string a client would
// POST to /ocr, so URL-encoded or data URI payloads are allowed.
type Sample struct {
	ID    string `json:"id" parquet:"id"`
	Image string `json:"image" parquet:"image"`
	Label string `json:"label" parquet:"label"`
}

// Bytes decodes the sample's image payload
func (s *Sample) Bytes() ([]byte, error) {
	data, err := payload.Decode(s.Image)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", s.ID, err)
	}
	return data, nil
}

// Valid reports whether the sample has both an image and a label
func (s *Sample) Valid() bool {
	return s.Image != "" && s.Label != ""
}
