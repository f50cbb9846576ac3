package providers

import (
	"context"
)

// Prompt is sent to vision models in place of a trained recognizer
const Prompt = `You are an OCR engine reading a short text image such as a captcha.

Return ONLY the characters visible in the image, in reading order.
Do not add spaces, quotes, punctuation, explanations or any other text.
If no characters are visible, return an empty response.`

// Image is the raw input handed to a provider
type Image struct {
	Data     []byte
	Format   string
	MimeType string
}

// Config represents the configuration for a recognition provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
}

// Provider defines the interface for a recognition backend
type Provider interface {
	Name() string
	ExtractText(ctx context.Context, config Config, img Image) (string, error)
}
