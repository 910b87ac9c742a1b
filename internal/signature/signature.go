// Package signature normalizes hand-drawn signatures captured by the client.
package signature

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	// MaxWidth bounds the stored signature width in pixels.
	MaxWidth = 600
	// MaxEncodedSize bounds the accepted base64 payload.
	MaxEncodedSize = 4 << 20
)

var ErrInvalid = errors.New("invalid_signature")

// Normalize decodes a base64 signature, optionally wrapped in a data URL,
// scales it down to MaxWidth and re-encodes it as base64 PNG.
func Normalize(encoded string) (string, error) {
	raw, err := Decode(encoded)
	if err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return "", ErrInvalid
	}
	if bounds.Dx() > MaxWidth {
		img = imaging.Resize(img, MaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode signature: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode strips an optional data URL header and returns the raw bytes.
func Decode(encoded string) ([]byte, error) {
	payload := strings.TrimSpace(encoded)
	if payload == "" || len(payload) > MaxEncodedSize {
		return nil, ErrInvalid
	}
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 || !strings.Contains(payload[:idx], ";base64") {
			return nil, ErrInvalid
		}
		payload = payload[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, ErrInvalid
		}
	}
	return raw, nil
}
