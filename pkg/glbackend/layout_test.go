package glbackend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/geovideo/pkg/frame"
)

func TestUnpackRowLength(t *testing.T) {
	tight := &frame.Buffer{Width: 10, Height: 2, Format: frame.FormatRGBA8}
	n, err := unpackRowLength(tight)
	require.NoError(t, err)
	assert.Zero(t, n)

	padded := &frame.Buffer{Width: 10, Height: 2, Stride: 64, Format: frame.FormatBGRA8}
	n, err = unpackRowLength(padded)
	require.NoError(t, err)
	assert.Equal(t, int32(16), n)

	odd := &frame.Buffer{Width: 10, Height: 2, Stride: 42, Format: frame.FormatRGBA8}
	_, err = unpackRowLength(odd)
	assert.Error(t, err)

	lum := &frame.Buffer{Width: 10, Height: 2, Stride: 12, Format: frame.FormatLuminance8}
	n, err = unpackRowLength(lum)
	require.NoError(t, err)
	assert.Equal(t, int32(12), n)

	_, err = unpackRowLength(&frame.Buffer{Width: 1, Height: 1})
	assert.Error(t, err)
}

func TestUploadLen(t *testing.T) {
	b := &frame.Buffer{Width: 10, Height: 3, Stride: 48, Format: frame.FormatRGBA8}
	assert.Equal(t, 48*2+40, uploadLen(b))
}
