package storage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const (
	MaxImageSide = 2048
	webpQuality  = 80
)

var extensions = map[string]string{
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"audio/mpeg":      ".mp3",
	"audio/ogg":       ".ogg",
	"audio/wav":       ".wav",
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
}

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/webp": true,
}

// Normalized is an upload ready to be stored.
type Normalized struct {
	ContentType string
	Ext         string
	Body        []byte
}

// Normalize re-encodes images as WebP, shrinking them so the longest side
// is at most maxSide. Other accepted types pass through untouched.
func Normalize(contentType string, body []byte, maxSide int) (Normalized, error) {
	if len(body) == 0 {
		return Normalized{}, fmt.Errorf("empty upload")
	}

	if !imageTypes[contentType] {
		ext, ok := extensions[contentType]
		if !ok {
			return Normalized{}, fmt.Errorf("unsupported content type %q", contentType)
		}
		return Normalized{ContentType: contentType, Ext: ext, Body: body}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return Normalized{}, fmt.Errorf("decode image: %w", err)
	}
	img = fit(img, maxSide)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: webpQuality}); err != nil {
		return Normalized{}, fmt.Errorf("encode webp: %w", err)
	}

	return Normalized{ContentType: "image/webp", Ext: ".webp", Body: buf.Bytes()}, nil
}

func fit(src image.Image, maxSide int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return src
	}

	if w >= h {
		h = h * maxSide / w
		w = maxSide
	} else {
		w = w * maxSide / h
		h = maxSide
	}

	dst := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
