package receipt

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHEIC(t *testing.T) {
	heicHeader := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)

	assert.True(t, isHEIC(heicHeader, "image/jpeg"))
	assert.True(t, isHEIC(nil, "image/heic"))
	assert.True(t, isHEIC(nil, "image/heif"))
	assert.False(t, isHEIC([]byte("not an image"), "image/jpeg"))
	assert.False(t, isHEIC([]byte{0, 0}, ""))
}

func TestNormalizeToPNG_PassesPNGThrough(t *testing.T) {
	pngData := encodeTestPNG(t)

	out, err := normalizeToPNG(pngData, "image/png")
	require.NoError(t, err)
	assert.Equal(t, pngData, out)
}

func TestNormalizeToPNG_DecodesAndReencodes(t *testing.T) {
	pngData := encodeTestPNG(t)

	// declared JPEG but actually PNG bytes: image.Decode sniffs the format
	out, err := normalizeToPNG(pngData, "image/jpeg")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
}

func TestNormalizeToPNG_RejectsGarbage(t *testing.T) {
	_, err := normalizeToPNG([]byte("definitely not an image"), "image/jpeg")
	assert.Error(t, err)
}

func encodeTestPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}
