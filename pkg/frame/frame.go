// Package frame defines decoded video frames as handed from a decoder to a
// layer.
//
// A [Buffer] is one decoded image ready for GPU upload. Ownership passes to
// the receiver on delivery: decoders must not touch Pix after submitting it.
package frame

import (
	"time"

	"github.com/go-drift/geovideo/pkg/errors"
)

// PixelFormat describes the byte layout of Buffer.Pix.
type PixelFormat int

const (
	// FormatUnknown is the zero value and is always rejected.
	FormatUnknown PixelFormat = iota
	// FormatRGBA8 is 8-bit red, green, blue, alpha, non-premultiplied.
	FormatRGBA8
	// FormatBGRA8 is 8-bit blue, green, red, alpha, as produced by
	// AVFoundation and most hardware decoders.
	FormatBGRA8
	// FormatLuminance8 is a single 8-bit gray channel.
	FormatLuminance8
)

// BytesPerPixel returns the size of one pixel in bytes, or 0 for unknown
// formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatRGBA8, FormatBGRA8:
		return 4
	case FormatLuminance8:
		return 1
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatBGRA8:
		return "BGRA8"
	case FormatLuminance8:
		return "L8"
	default:
		return "unknown"
	}
}

// Buffer is a single decoded image.
type Buffer struct {
	// Pix holds the pixel rows top to bottom.
	Pix []byte
	// Stride is the byte distance between rows. Zero means tightly packed.
	Stride int
	// Width and Height are the image dimensions in pixels.
	Width, Height int
	// Format is the layout of each pixel in Pix.
	Format PixelFormat
	// PTS is the presentation timestamp relative to the start of the stream.
	PTS time.Duration
}

// RowBytes returns the effective stride of the buffer.
func (b *Buffer) RowBytes() int {
	if b.Stride > 0 {
		return b.Stride
	}
	return b.Width * b.Format.BytesPerPixel()
}

// SameShape reports whether b and o would fit the same texture allocation.
func (b *Buffer) SameShape(o *Buffer) bool {
	if b == nil || o == nil {
		return false
	}
	return b.Width == o.Width && b.Height == o.Height && b.Format == o.Format
}

// Validate checks dimensions, format, and pixel data length. maxSize is the
// largest allowed width or height; zero or negative disables that check.
// The returned error is a [*errors.FrameError] wrapping
// [errors.ErrInvalidFrameBuffer].
func (b *Buffer) Validate(maxSize int) error {
	if b == nil {
		return &errors.FrameError{Reason: "nil buffer"}
	}
	if b.Width <= 0 || b.Height <= 0 {
		return &errors.FrameError{Width: b.Width, Height: b.Height, Reason: "zero dimension"}
	}
	if maxSize > 0 && (b.Width > maxSize || b.Height > maxSize) {
		return &errors.FrameError{Width: b.Width, Height: b.Height, Reason: "exceeds device texture limit"}
	}
	bpp := b.Format.BytesPerPixel()
	if bpp == 0 {
		return &errors.FrameError{Width: b.Width, Height: b.Height, Reason: "unknown pixel format"}
	}
	if b.Stride != 0 && b.Stride < b.Width*bpp {
		return &errors.FrameError{Width: b.Width, Height: b.Height, Reason: "stride shorter than row"}
	}
	need := b.RowBytes()*(b.Height-1) + b.Width*bpp
	if len(b.Pix) < need {
		return &errors.FrameError{Width: b.Width, Height: b.Height, Reason: "pixel data too short"}
	}
	return nil
}

// Sink receives frames and playback signals from a decoder. Implementations
// must be safe to call from the decoder's own goroutine.
type Sink interface {
	// SubmitFrame hands a decoded frame to the receiver.
	SubmitFrame(b *Buffer) error
	// EndOfStream reports that the decoder has delivered its last frame.
	EndOfStream()
}
