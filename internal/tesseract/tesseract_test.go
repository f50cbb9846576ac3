package tesseract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/ocrserver/internal/providers"
	"github.com/otiai10/gosseract/v2"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadCharset(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
		wantErr  bool
	}{
		{name: "ddddocr style with blank", content: `["", "a", "b", "1"]`, expected: "ab1"},
		{name: "duplicates collapsed", content: `["a", "a", "ab"]`, expected: "ab"},
		{name: "unicode symbols", content: `["验", "证", "码"]`, expected: "验证码"},
		{name: "only blank", content: `[""]`, wantErr: true},
		{name: "not an array", content: `{"a": 1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "charsets.json", tt.content)
			got, err := LoadCharset(path)
			if tt.wantErr {
				if !errors.Is(err, ErrStartup) {
					t.Errorf("Expected ErrStartup, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadCharset failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

// systemModel returns an installed eng.traineddata, skipping the test when
// Tesseract or its English model is not available.
func systemModel(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}

	var dirs []string
	if prefix := os.Getenv("TESSDATA_PREFIX"); prefix != "" {
		dirs = append(dirs, prefix, filepath.Join(prefix, "tessdata"))
	}
	// tesseract 4+ prints: List of available languages in "/path/" (N):
	if out, err := exec.Command("tesseract", "--list-langs").CombinedOutput(); err == nil {
		if m := regexp.MustCompile(`in "([^"]+)"`).FindSubmatch(out); m != nil {
			dirs = append(dirs, string(m[1]))
		}
	}
	dirs = append(dirs,
		"/usr/share/tesseract-ocr/5/tessdata",
		"/usr/share/tesseract-ocr/4.00/tessdata",
		"/usr/share/tessdata",
		"/usr/local/share/tessdata",
		"/opt/homebrew/share/tessdata",
	)

	for _, dir := range dirs {
		path := filepath.Join(dir, "eng.traineddata")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Skip("eng.traineddata not found")
	return ""
}

// renderLine draws text in a bitmap font and scales it up so Tesseract
// sees glyphs of a realistic size.
func renderLine(t *testing.T, text string) []byte {
	t.Helper()
	small := image.NewRGBA(image.Rect(0, 0, 16+7*len(text), 24))
	draw.Draw(small, small.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  small,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(8, 17),
	}
	d.DrawString(text)

	const scale = 4
	big := image.NewRGBA(image.Rect(0, 0, small.Bounds().Dx()*scale, small.Bounds().Dy()*scale))
	xdraw.NearestNeighbor.Scale(big, big.Bounds(), small, small.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, big); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestLoad(t *testing.T) {
	model := systemModel(t)
	charset := writeFile(t, t.TempDir(), "charsets.json", `["", "0", "1"]`)

	engine, err := Load(model, charset)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if engine.Language() != "eng" {
		t.Errorf("Expected language eng, got %s", engine.Language())
	}
	if engine.Whitelist() != "01" {
		t.Errorf("Expected whitelist 01, got %s", engine.Whitelist())
	}
	if engine.tessdataDir != filepath.Dir(model) {
		t.Errorf("Expected tessdata dir %s, got %s", filepath.Dir(model), engine.tessdataDir)
	}
}

func TestLoadEmptyModel(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "x.traineddata", "")
	charset := writeFile(t, dir, "charsets.json", `["", "a", "b"]`)

	if _, err := Load(model, charset); !errors.Is(err, ErrStartup) {
		t.Errorf("Expected ErrStartup, got %v", err)
	}
}

func TestExtractText(t *testing.T) {
	model := systemModel(t)
	charset := writeFile(t, t.TempDir(), "charsets.json", `["", "0", "1", "2", "3", "4", "5", "6", "7", "8", "9"]`)

	engine, err := Load(model, charset)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	clients := 0
	engine.clientFactory = func() *gosseract.Client {
		clients++
		return gosseract.NewClient()
	}

	text, err := engine.ExtractText(context.Background(), providers.Config{}, providers.Image{
		Data:     renderLine(t, "4829"),
		Format:   "png",
		MimeType: "image/png",
	})
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if text == "" {
		t.Fatal("Expected a non-empty result")
	}
	for _, r := range text {
		if !strings.ContainsRune(engine.Whitelist(), r) {
			t.Errorf("Result %q contains %q outside the charset", text, r)
		}
	}
	if clients != 1 {
		t.Errorf("Expected one client per call, got %d", clients)
	}
}

func TestExtractTextContextDone(t *testing.T) {
	engine := &Engine{
		language:  "eng",
		whitelist: "01",
		clientFactory: func() *gosseract.Client {
			t.Error("client created for a finished context")
			return gosseract.NewClient()
		},
	}
	img := providers.Image{Data: []byte("png"), Format: "png"}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.ExtractText(cancelled, providers.Config{}, img); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	if _, err := engine.ExtractText(expired, providers.Config{}, img); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestLoadMissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "captcha.traineddata", "model")
	charset := writeFile(t, dir, "charsets.json", `["a"]`)

	tests := []struct {
		name    string
		model   string
		charset string
	}{
		{name: "missing model", model: filepath.Join(dir, "nope.traineddata"), charset: charset},
		{name: "missing charset", model: model, charset: filepath.Join(dir, "nope.json")},
		{name: "wrong model extension", model: filepath.Join(dir, "95%.onnx"), charset: charset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.model, tt.charset); !errors.Is(err, ErrStartup) {
				t.Errorf("Expected ErrStartup, got %v", err)
			}
		})
	}
}
