package texture

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/geovideo/pkg/errors"
	"github.com/go-drift/geovideo/pkg/frame"
	"github.com/go-drift/geovideo/pkg/gputest"
)

func solid(w, h int, v byte, pts time.Duration) *frame.Buffer {
	pix := make([]byte, w*h*4)
	for i := range pix {
		pix[i] = v
	}
	return &frame.Buffer{Pix: pix, Width: w, Height: h, Format: frame.FormatRGBA8, PTS: pts}
}

func TestCurrentBeforeAnyFrame(t *testing.T) {
	g := gputest.New()
	m := NewManager("l")
	tex, ok := m.Current(g)
	assert.False(t, ok)
	assert.Zero(t, tex)
	assert.Zero(t, g.Calls("CreateTexture"))
}

func TestSubmitAndCurrentUploadsOnce(t *testing.T) {
	g := gputest.New()
	m := NewManager("l")
	require.NoError(t, m.Submit(solid(64, 64, 1, 0)))
	assert.True(t, m.HasPending())

	tex, ok := m.Current(g)
	require.True(t, ok)
	assert.Equal(t, byte(1), g.TextureState(tex).Pix[0])
	assert.False(t, m.HasPending())

	for i := 0; i < 3; i++ {
		again, ok := m.Current(g)
		assert.True(t, ok)
		assert.Equal(t, tex, again)
	}
	assert.Equal(t, 1, g.Calls("UploadTexture"))
	assert.Equal(t, 1, g.Calls("CreateTexture"))
}

func TestSameShapeReusesTexture(t *testing.T) {
	g := gputest.New()
	m := NewManager("l")
	require.NoError(t, m.Submit(solid(64, 64, 1, 0)))
	first, _ := m.Current(g)
	require.NoError(t, m.Submit(solid(64, 64, 2, time.Second)))
	second, _ := m.Current(g)

	assert.Equal(t, first, second)
	assert.Equal(t, byte(2), g.TextureState(second).Pix[0])
	assert.Equal(t, time.Second, g.TextureState(second).PTS)
	assert.Equal(t, int64(1), m.Stats().Reallocations)
}

func TestShapeChangeReallocates(t *testing.T) {
	g := gputest.New()
	m := NewManager("l")
	require.NoError(t, m.Submit(solid(64, 64, 1, 0)))
	first, _ := m.Current(g)
	require.NoError(t, m.Submit(solid(32, 16, 2, 0)))
	second, ok := m.Current(g)

	require.True(t, ok)
	assert.NotEqual(t, first, second)
	assert.Nil(t, g.TextureState(first), "old texture deleted")
	assert.Equal(t, 32, g.TextureState(second).Width)
	_, textures, _ := g.Live()
	assert.Equal(t, 1, textures)
}

func TestPendingSlotDropsOldest(t *testing.T) {
	g := gputest.New()
	m := NewManager("l")
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Submit(solid(8, 8, byte(i), 0)))
	}
	tex, _ := m.Current(g)
	assert.Equal(t, byte(4), g.TextureState(tex).Pix[0])

	st := m.Stats()
	assert.Equal(t, int64(5), st.Submitted)
	assert.Equal(t, int64(4), st.Dropped)
	assert.Equal(t, int64(1), st.Uploaded)
}

func TestInvalidFrameKeepsCurrent(t *testing.T) {
	g := gputest.New()
	m := NewManager("l")
	require.NoError(t, m.Submit(solid(64, 64, 7, 0)))
	tex, _ := m.Current(g)

	err := m.Submit(&frame.Buffer{Width: 0, Height: 64, Format: frame.FormatRGBA8})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidFrameBuffer))

	again, ok := m.Current(g)
	assert.True(t, ok)
	assert.Equal(t, tex, again)
	assert.Equal(t, byte(7), g.TextureState(again).Pix[0])
	assert.Equal(t, int64(1), m.Stats().Rejected)
}

func TestSubmitRejectsOversizedOnceLimitKnown(t *testing.T) {
	m := NewManager("l")
	m.SetMaxTextureSize(128)
	err := m.Submit(solid(256, 8, 0, 0))
	assert.True(t, errors.Is(err, errors.ErrInvalidFrameBuffer))
	assert.False(t, m.HasPending())
}

func TestOversizedAtUploadIsReported(t *testing.T) {
	rec := errors.SetupRecorder(t.Cleanup)
	g := gputest.New()
	g.MaxSize = 32
	m := NewManager("l")
	require.NoError(t, m.Submit(solid(16, 16, 1, 0)))
	tex, _ := m.Current(g)

	require.NoError(t, m.Submit(solid(64, 64, 2, 0)))
	again, ok := m.Current(g)
	assert.True(t, ok)
	assert.Equal(t, tex, again)
	assert.Equal(t, 1, rec.CountKind(errors.KindFrame))
}

func TestAllocationFailureSkipsTickAndKeepsPrevious(t *testing.T) {
	rec := errors.SetupRecorder(t.Cleanup)
	g := gputest.New()
	m := NewManager("l")
	require.NoError(t, m.Submit(solid(16, 16, 1, 0)))
	tex, _ := m.Current(g)

	g.FailCreateTexture = fmt.Errorf("out of memory")
	require.NoError(t, m.Submit(solid(32, 32, 2, 0)))
	_, ok := m.Current(g)
	assert.False(t, ok, "draw skipped on allocation failure")
	require.Len(t, rec.Errors(), 1)
	assert.True(t, errors.Is(rec.Errors()[0], errors.ErrTextureAllocation))

	again, ok := m.Current(g)
	assert.True(t, ok)
	assert.Equal(t, tex, again)
	assert.Equal(t, byte(1), g.TextureState(again).Pix[0])
}

func TestUploadFailureReleasesNewTexture(t *testing.T) {
	errors.SetupRecorder(t.Cleanup)
	g := gputest.New()
	g.FailUpload = fmt.Errorf("device lost")
	m := NewManager("l")
	require.NoError(t, m.Submit(solid(16, 16, 1, 0)))
	_, ok := m.Current(g)
	assert.False(t, ok)
	_, textures, _ := g.Live()
	assert.Zero(t, textures)
}

func TestReleaseAndRestore(t *testing.T) {
	g := gputest.New()
	m := NewManager("l")
	require.NoError(t, m.Submit(solid(16, 16, 3, 0)))
	m.Current(g)
	require.NoError(t, m.Submit(solid(16, 16, 4, 0)))

	m.Release(g)
	m.Release(g)
	_, textures, _ := g.Live()
	assert.Zero(t, textures)
	assert.False(t, m.HasPending(), "pending frame dropped on release")
	assert.Zero(t, m.Texture())

	g2 := gputest.New()
	tex, ok := m.Current(g2)
	require.True(t, ok)
	assert.Equal(t, byte(3), g2.TextureState(tex).Pix[0])
}

func TestConcurrentSubmit(t *testing.T) {
	g := gputest.New()
	m := NewManager("l")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v byte) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = m.Submit(solid(4, 4, v, 0))
			}
		}(byte(i))
	}
	for i := 0; i < 50; i++ {
		m.Current(g)
	}
	wg.Wait()
	m.Current(g)

	st := m.Stats()
	assert.Equal(t, int64(400), st.Submitted)
	assert.Equal(t, st.Submitted, st.Dropped+st.Uploaded)
}
