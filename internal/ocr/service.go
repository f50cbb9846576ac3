package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/ocrserver/internal/cache"
	"github.com/lehigh-university-libraries/ocrserver/internal/images"
	"github.com/lehigh-university-libraries/ocrserver/internal/providers"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrRecognition wraps every failure between decoded bytes and text
	ErrRecognition = errors.New("OCR recognition failed")

	// ErrEmptyResult is returned when the engine produced no text
	ErrEmptyResult = fmt.Errorf("%w, no result returned", ErrRecognition)
)

// Service handles OCR extraction from images. The engine is built once at
// startup and shared by all requests.
type Service struct {
	engine  providers.Provider
	config  providers.Config
	formats []string
	cache   cache.Store
	timeout time.Duration
	quotes  string
}

// wrappingQuotes are stripped from results unless the engine can emit them
const wrappingQuotes = "\"'`"

// whitelister is implemented by engines restricted to a character set
type whitelister interface {
	Whitelist() string
}

// Option customizes a Service
type Option func(*Service)

// WithCache enables result caching
func WithCache(store cache.Store) Option {
	return func(s *Service) { s.cache = store }
}

// WithTimeout bounds each engine call
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithFormats sets the image formats the engine reads natively; anything
// else is converted to PNG first.
func WithFormats(formats ...string) Option {
	return func(s *Service) { s.formats = append([]string(nil), formats...) }
}

// NewService creates a new OCR service around engine
func NewService(engine providers.Provider, config providers.Config, opts ...Option) *Service {
	s := &Service{
		engine:  engine,
		config:  config,
		formats: []string{"png", "jpeg"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.quotes = strippableQuotes(engine)
	return s
}

// strippableQuotes drops any quote character the engine's charset contains,
// since a quote from such an engine is part of the answer.
func strippableQuotes(engine providers.Provider) string {
	w, ok := engine.(whitelister)
	if !ok {
		return wrappingQuotes
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(w.Whitelist(), r) {
			return -1
		}
		return r
	}, wrappingQuotes)
}

// EngineName reports which backend is serving requests
func (s *Service) EngineName() string {
	return s.engine.Name()
}

// Model reports the configured model name
func (s *Service) Model() string {
	return s.config.Model
}

// Recognize extracts text from raw image bytes
func (s *Service) Recognize(ctx context.Context, data []byte) (string, error) {
	prepared, info, err := images.Prepare(data, s.formats...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognition, err)
	}
	slog.Debug("Image accepted", "format", info.Format, "width", info.Width, "height", info.Height, "bytes", info.Size)

	key := cache.Key(data)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("Result cache lookup failed", "err", err)
		} else if ok {
			slog.Debug("Result cache hit", "key", key)
			return cached, nil
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.engine.ExtractText(ctx, s.config, providers.Image{
		Data:     prepared,
		Format:   info.Format,
		MimeType: images.MimeType(info.Format),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRecognition, s.engine.Name(), err)
	}

	text = clean(text, s.quotes)
	slog.Info("Extracted OCR text", "provider", s.engine.Name(), "model", s.config.Model, "length", len(text), "duration", time.Since(start))
	if text == "" {
		return "", ErrEmptyResult
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, text); err != nil {
			slog.Warn("Result cache store failed", "err", err)
		}
	}

	return text, nil
}

// clean trims whitespace and the quotes that vision models like to add,
// and puts the text in NFC form.
func clean(text, quotes string) string {
	text = strings.TrimSpace(text)
	if quotes != "" {
		text = strings.TrimSpace(strings.Trim(text, quotes))
	}
	return norm.NFC.String(text)
}
