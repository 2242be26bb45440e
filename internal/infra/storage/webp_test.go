package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeConvertsImagesToWebP(t *testing.T) {
	out, err := Normalize("image/png", pngOf(t, 64, 32), MaxImageSide)
	require.NoError(t, err)

	assert.Equal(t, "image/webp", out.ContentType)
	assert.Equal(t, ".webp", out.Ext)

	cfg, err := webp.DecodeConfig(bytes.NewReader(out.Body))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
}

func TestNormalizeShrinksLargeImages(t *testing.T) {
	out, err := Normalize("image/png", pngOf(t, 200, 100), 50)
	require.NoError(t, err)

	cfg, err := webp.DecodeConfig(bytes.NewReader(out.Body))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 25, cfg.Height)
}

func TestNormalizePassesDocumentsThrough(t *testing.T) {
	body := []byte("%PDF-1.4")

	out, err := Normalize("application/pdf", body, MaxImageSide)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", out.ContentType)
	assert.Equal(t, ".pdf", out.Ext)
	assert.Equal(t, body, out.Body)
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
	}{
		{"empty", "image/png", nil},
		{"unknown type", "application/x-msdownload", []byte("MZ")},
		{"corrupt image", "image/jpeg", []byte("not a jpeg")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.contentType, tt.body, MaxImageSide)
			assert.Error(t, err)
		})
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory("http://files.local")
	ctx := context.Background()

	url, err := m.Put(ctx, "appeals/a/1.pdf", "application/pdf", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "http://files.local/appeals/a/1.pdf", url)

	obj, err := m.Get("appeals/a/1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", obj.ContentType)

	require.NoError(t, m.Delete(ctx, "appeals/a/1.pdf"))
	_, err = m.Get("appeals/a/1.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
