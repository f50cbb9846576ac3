package tesseract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/ocrserver/internal/providers"
	"github.com/otiai10/gosseract/v2"
)

// ErrStartup marks a model or charset that could not be loaded
var ErrStartup = errors.New("failed to load OCR model")

const modelExt = ".traineddata"

// Formats lists the encodings handed to leptonica without conversion
var Formats = []string{"png", "jpeg", "tiff", "bmp"}

// Engine recognizes text with a local Tesseract model restricted to a
// fixed character set. Fields are set once by Load and never modified.
type Engine struct {
	tessdataDir string
	language    string
	whitelist   string
	pageSegMode gosseract.PageSegMode

	clientFactory func() *gosseract.Client
}

// Load validates the model and charset files and returns a ready engine.
func Load(modelPath, charsetPath string) (*Engine, error) {
	if filepath.Ext(modelPath) != modelExt {
		return nil, fmt.Errorf("%w: model %s must be a %s file", ErrStartup, modelPath, modelExt)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartup, err)
	}

	whitelist, err := LoadCharset(charsetPath)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartup, err)
	}

	engine := &Engine{
		tessdataDir:   filepath.Dir(abs),
		language:      strings.TrimSuffix(filepath.Base(abs), modelExt),
		whitelist:     whitelist,
		pageSegMode:   gosseract.PSM_SINGLE_LINE,
		clientFactory: gosseract.NewClient,
	}

	// Tesseract reads the model lazily on the first Text call
	if err := engine.warmUp(); err != nil {
		return nil, fmt.Errorf("%w: model %s: %v", ErrStartup, modelPath, err)
	}
	return engine, nil
}

// warmUp runs one recognition on a blank image so a corrupt or
// incompatible model fails here instead of on every request.
func (e *Engine) warmUp() error {
	blank, err := blankPNG()
	if err != nil {
		return err
	}
	c := e.clientFactory()
	defer c.Close()
	_, err = e.recognizeWithClient(c, blank)
	return err
}

func blankPNG() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 64, 32))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadCharset reads a JSON array of symbols and flattens it into a
// whitelist string. Empty entries (the CTC blank) are skipped.
func LoadCharset(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStartup, err)
	}

	var symbols []string
	if err := json.Unmarshal(data, &symbols); err != nil {
		return "", fmt.Errorf("%w: charset %s is not a JSON string array: %v", ErrStartup, path, err)
	}

	seen := make(map[rune]bool)
	var sb strings.Builder
	for _, s := range symbols {
		for _, r := range s {
			if seen[r] {
				continue
			}
			seen[r] = true
			sb.WriteRune(r)
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: charset %s is empty", ErrStartup, path)
	}
	return sb.String(), nil
}

func (e *Engine) Name() string { return "tesseract" }

// Language is the model name derived from the traineddata file
func (e *Engine) Language() string { return e.language }

// Whitelist is the flattened character set
func (e *Engine) Whitelist() string { return e.whitelist }

// ExtractText runs Tesseract on the image. A fresh client is used per call
// since gosseract clients are not safe for concurrent use.
func (e *Engine) ExtractText(ctx context.Context, _ providers.Config, img providers.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		c := e.clientFactory()
		defer c.Close()
		text, err := e.recognizeWithClient(c, img.Data)
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case out := <-done:
		return out.text, out.err
	}
}

func (e *Engine) recognizeWithClient(c *gosseract.Client, data []byte) (string, error) {
	if err := c.SetTessdataPrefix(e.tessdataDir); err != nil {
		return "", fmt.Errorf("set tessdata prefix: %w", err)
	}
	if err := c.SetLanguage(e.language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := c.SetPageSegMode(e.pageSegMode); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetWhitelist(e.whitelist); err != nil {
		return "", fmt.Errorf("set whitelist: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
