package signature

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodedBounds(t *testing.T, encoded string) image.Rectangle {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	return img.Bounds()
}

func TestNormalizeScalesWideSignatures(t *testing.T) {
	out, err := Normalize("data:image/png;base64," + encodePNG(t, 1200, 300))
	require.NoError(t, err)

	bounds := decodedBounds(t, out)
	assert.Equal(t, MaxWidth, bounds.Dx())
	assert.Equal(t, 150, bounds.Dy())
}

func TestNormalizeKeepsSmallSignatures(t *testing.T) {
	out, err := Normalize(encodePNG(t, 320, 100))
	require.NoError(t, err)

	bounds := decodedBounds(t, out)
	assert.Equal(t, 320, bounds.Dx())
	assert.Equal(t, 100, bounds.Dy())
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "not base64 !!", base64.StdEncoding.EncodeToString([]byte("plain text")), "data:image/png,abc"} {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, ErrInvalid, "input %q", in)
	}
}
