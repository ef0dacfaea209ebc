package frame

import (
	"image"
	"time"

	"golang.org/x/image/draw"
)

// FromImage copies img into a new RGBA8 Buffer. *image.RGBA and
// *image.NRGBA sources are copied row by row; other models such as
// *image.YCbCr are converted.
func FromImage(img image.Image, pts time.Duration) *Buffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	buf := &Buffer{
		Width:  w,
		Height: h,
		Format: FormatRGBA8,
		PTS:    pts,
	}
	if w <= 0 || h <= 0 {
		return buf
	}

	switch src := img.(type) {
	case *image.NRGBA:
		buf.Pix = copyRows(src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), w*4, h)
		return buf
	case *image.RGBA:
		if src.Opaque() {
			buf.Pix = copyRows(src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), w*4, h)
			return buf
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	buf.Pix = dst.Pix
	return buf
}

func copyRows(pix []byte, stride, offset, rowBytes, rows int) []byte {
	out := make([]byte, rowBytes*rows)
	for y := 0; y < rows; y++ {
		start := offset + y*stride
		copy(out[y*rowBytes:(y+1)*rowBytes], pix[start:start+rowBytes])
	}
	return out
}

// FitImage scales img down, preserving aspect ratio, so that neither side
// exceeds maxSize. Images already within bounds are returned unchanged.
func FitImage(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}
	nw, nh := maxSize, maxSize
	if w >= h {
		nh = max(1, h*maxSize/w)
	} else {
		nw = max(1, w*maxSize/h)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
