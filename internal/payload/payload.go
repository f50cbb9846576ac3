package payload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrDecode is returned for input that cannot be turned into image bytes
var ErrDecode = errors.New("base64 decoding failed")

const dataURIMarker = "base64,"

// FixPadding appends '=' until the length is a multiple of 4.
// Some senders drop the trailing padding.
func FixPadding(s string) string {
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return s
}

// StripDataURI removes a "data:image/png;base64," style prefix
func StripDataURI(s string) string {
	if idx := strings.Index(s, dataURIMarker); idx >= 0 {
		return s[idx+len(dataURIMarker):]
	}
	return s
}

// Unescape percent-decodes s when it carries escapes. A literal '+' is kept
// as-is since it is a valid base64 character. Malformed escapes such as a
// lone '%' or "%zz" are left in place for the base64 decoder to reject.
func Unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	if out, err := url.PathUnescape(s); err == nil {
		return out
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			sb.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}

// Normalize runs the payload through URL decoding, data URI stripping and
// padding repair, in that order.
func Normalize(s string) (string, error) {
	s = Unescape(strings.TrimSpace(s))
	s = strings.TrimSpace(StripDataURI(s))
	if s == "" {
		return "", fmt.Errorf("%w: empty image payload", ErrDecode)
	}
	return FixPadding(s), nil
}

// Decode normalizes s and decodes it into raw bytes.
func Decode(s string) ([]byte, error) {
	normalized, err := Normalize(s)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(normalized)
	if err == nil {
		return data, nil
	}

	// URL-safe senders use '-' and '_'
	if strings.ContainsAny(normalized, "-_") {
		if alt, altErr := base64.URLEncoding.DecodeString(normalized); altErr == nil {
			return alt, nil
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrDecode, err)
}

// Encode is the inverse of Decode for well-formed input.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
