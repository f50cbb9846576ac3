package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupported is returned when the bytes are not a decodable image
var ErrUnsupported = errors.New("unsupported image format")

// Info describes an image without decoding its pixels
type Info struct {
	Format string
	Width  int
	Height int
	Size   int
}

// Inspect reads the image header and reports format and dimensions.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, fmt.Errorf("%w: empty data", ErrUnsupported)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	return Info{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   len(data),
	}, nil
}

// ToPNG re-encodes any registered image format as PNG
func ToPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// MimeType maps a format name from Inspect to a MIME type
func MimeType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// Prepare returns bytes in a format accepted by the caller, converting to
// PNG when the source format is not in accepted.
func Prepare(data []byte, accepted ...string) ([]byte, Info, error) {
	info, err := Inspect(data)
	if err != nil {
		return nil, Info{}, err
	}

	for _, f := range accepted {
		if f == info.Format {
			return data, info, nil
		}
	}

	converted, err := ToPNG(data)
	if err != nil {
		return nil, info, err
	}
	info.Format = "png"
	info.Size = len(converted)
	return converted, info, nil
}
