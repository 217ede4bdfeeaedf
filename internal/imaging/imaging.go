// Package imaging normalizes gear and walk photos before they are stored.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// MaxDimension is the longest edge of a stored photo.
const MaxDimension = 1024

// MaxUploadBytes bounds the raw upload size.
const MaxUploadBytes = 10 << 20

// JPEGQuality is the compression quality for stored photos.
const JPEGQuality = 85

var (
	// ErrUnsupported is returned for uploads that are not JPEG, PNG or WebP.
	ErrUnsupported = errors.New("unsupported image format")
	// ErrTooLarge is returned for uploads over MaxUploadBytes.
	ErrTooLarge = errors.New("image too large")
)

var decoders = map[string]func(io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
	"image/webp": webp.Decode,
}

// Result is a processed photo ready for storage.
type Result struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Process sniffs the upload's format, flattens transparency onto white,
// shrinks it to fit MaxDimension and re-encodes it as JPEG.
func Process(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	mime := http.DetectContentType(data)
	decode, ok := decoders[mime]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	out := fit(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	b := out.Bounds()
	return &Result{
		Data:   buf.Bytes(),
		MIME:   "image/jpeg",
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// fit draws img onto an opaque canvas no larger than maxDim on either edge,
// keeping the aspect ratio.
func fit(img image.Image, maxDim int) image.Image {
	src := img.Bounds()
	w, h := scaledSize(src.Dx(), src.Dy(), maxDim)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == src.Dx() && h == src.Dy() {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst
}

func scaledSize(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w > h {
		return maxDim, max(1, int(float64(h)*float64(maxDim)/float64(w)))
	}
	return max(1, int(float64(w)*float64(maxDim)/float64(h))), maxDim
}
