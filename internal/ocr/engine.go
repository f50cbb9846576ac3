package ocr

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lehigh-university-libraries/ocrserver/internal/gemini"
	"github.com/lehigh-university-libraries/ocrserver/internal/ollama"
	"github.com/lehigh-university-libraries/ocrserver/internal/openai"
	"github.com/lehigh-university-libraries/ocrserver/internal/providers"
	"github.com/lehigh-university-libraries/ocrserver/internal/tesseract"
)

// DefaultProvider is the local model-backed engine
const DefaultProvider = "tesseract"

// Config describes which recognition backend to load
type Config struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	ModelPath   string        `yaml:"model_path"`
	CharsetPath string        `yaml:"charset_path"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// NewEngine loads the configured backend. For tesseract this reads the model
// and charset from disk, so a missing artifact fails here, before serving.
func NewEngine(cfg Config) (providers.Provider, providers.Config, []string, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = DefaultProvider
	}

	pcfg := providers.Config{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Prompt:      providers.Prompt,
	}
	if pcfg.Model == "" {
		pcfg.Model = getDefaultModel(provider)
	}

	switch provider {
	case "tesseract":
		engine, err := tesseract.Load(cfg.ModelPath, cfg.CharsetPath)
		if err != nil {
			return nil, pcfg, nil, err
		}
		pcfg.Model = engine.Language()
		slog.Info("OCR initialized successfully", "provider", provider, "model", cfg.ModelPath, "charset", cfg.CharsetPath, "symbols", len([]rune(engine.Whitelist())))
		return engine, pcfg, tesseract.Formats, nil
	case "ollama":
		slog.Info("OCR initialized successfully", "provider", provider, "model", pcfg.Model)
		return ollama.New(), pcfg, []string{"png", "jpeg"}, nil
	case "openai":
		engine, err := openai.New()
		if err != nil {
			return nil, pcfg, nil, err
		}
		slog.Info("OCR initialized successfully", "provider", provider, "model", pcfg.Model)
		return engine, pcfg, []string{"png", "jpeg", "gif", "webp"}, nil
	case "gemini":
		engine, err := gemini.New()
		if err != nil {
			return nil, pcfg, nil, err
		}
		slog.Info("OCR initialized successfully", "provider", provider, "model", pcfg.Model)
		return engine, pcfg, []string{"png", "jpeg", "webp"}, nil
	default:
		return nil, pcfg, nil, fmt.Errorf("unsupported OCR provider: %s", provider)
	}
}

// Load builds the engine and wraps it in a Service
func Load(cfg Config, opts ...Option) (*Service, error) {
	engine, pcfg, formats, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithFormats(formats...), WithTimeout(cfg.Timeout)}, opts...)
	return NewService(engine, pcfg, opts...), nil
}

func getDefaultModel(provider string) string {
	switch provider {
	case "openai":
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			return openai.DefaultModel
		}
		return model
	case "ollama":
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			return ollama.DefaultModel
		}
		return model
	case "gemini":
		model := os.Getenv("GEMINI_MODEL")
		if model == "" {
			return gemini.DefaultModel
		}
		return model
	default:
		return ""
	}
}
