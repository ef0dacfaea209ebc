// Package glbackend implements [gpu.Graphics] on an OpenGL 3.3 core
// context owned by the host. The host's context must be current on the
// calling thread for every method, including [New].
package glbackend

import (
	"fmt"

	"github.com/go-drift/geovideo/pkg/frame"
)

// unpackRowLength returns the GL_UNPACK_ROW_LENGTH for b in pixels, or zero
// when rows are tightly packed.
func unpackRowLength(b *frame.Buffer) (int32, error) {
	bpp := b.Format.BytesPerPixel()
	if bpp == 0 {
		return 0, fmt.Errorf("unsupported pixel format %s", b.Format)
	}
	stride := b.RowBytes()
	if stride == b.Width*bpp {
		return 0, nil
	}
	if stride%bpp != 0 {
		return 0, fmt.Errorf("stride %d is not a whole number of %s pixels", stride, b.Format)
	}
	return int32(stride / bpp), nil
}

// uploadLen returns how many bytes of b.Pix the driver reads.
func uploadLen(b *frame.Buffer) int {
	return b.RowBytes()*(b.Height-1) + b.Width*b.Format.BytesPerPixel()
}
