package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// Uploads are shrunk to fit this box before they reach blob storage, same
// rule the admin panel applied client-side.
const (
	MaxWidth  = 800
	MaxHeight = 800

	jpegQuality = 80
)

// Compress decodes an uploaded image (JPEG or PNG), scales it down to fit
// MaxWidth x MaxHeight preserving aspect ratio, and re-encodes as JPEG.
// Images already inside the box are only re-encoded.
func Compress(data []byte) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	nw, nh := fit(w, h)

	out := src
	if nw != w || nh != h {
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

func fit(w, h int) (int, int) {
	if w <= MaxWidth && h <= MaxHeight {
		return w, h
	}
	if w > h {
		return MaxWidth, h * MaxWidth / w
	}
	return w * MaxHeight / h, MaxHeight
}
