package decode

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/geovideo/pkg/frame"
	"github.com/go-drift/geovideo/pkg/geo"
	"github.com/go-drift/geovideo/pkg/playback"
	"github.com/go-drift/geovideo/pkg/videolayer"
)

type fakeSource struct {
	frames  []image.Image
	pos     int
	rewinds int
	failAt  int
}

func newFakeSource(n, w, h int) *fakeSource {
	s := &fakeSource{failAt: -1}
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for j := range img.Pix {
			img.Pix[j] = 255
		}
		img.Set(0, 0, color.RGBA{R: uint8(i), A: 255})
		s.frames = append(s.frames, img)
	}
	return s
}

func (s *fakeSource) next() (image.Image, time.Duration, bool, error) {
	if s.pos == s.failAt {
		return nil, 0, false, fmt.Errorf("corrupt packet")
	}
	if s.pos >= len(s.frames) {
		return nil, 0, false, nil
	}
	img := s.frames[s.pos]
	pts := time.Duration(s.pos) * 40 * time.Millisecond
	s.pos++
	return img, pts, true, nil
}

func (s *fakeSource) rewind() error {
	s.rewinds++
	s.pos = 0
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	pts    []time.Duration
	sizes  [][2]int
	ends   int
	onEnd  func(n int)
	reject bool
}

func (s *recordingSink) SubmitFrame(b *frame.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject {
		return fmt.Errorf("not playing")
	}
	s.pts = append(s.pts, b.PTS)
	s.sizes = append(s.sizes, [2]int{b.Width, b.Height})
	return nil
}

func (s *recordingSink) EndOfStream() {
	s.mu.Lock()
	s.ends++
	n := s.ends
	s.mu.Unlock()
	if s.onEnd != nil {
		s.onEnd(n)
	}
}

func ms(v ...int) []time.Duration {
	out := make([]time.Duration, len(v))
	for i, x := range v {
		out[i] = time.Duration(x) * time.Millisecond
	}
	return out
}

func TestPlayerLoopsOnRequest(t *testing.T) {
	src := newFakeSource(3, 4, 4)
	p := newPlayer(src, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{}
	sink.onEnd = func(n int) {
		if n < 3 {
			require.NoError(t, p.SeekToStart())
			require.NoError(t, p.Resume())
			return
		}
		cancel()
	}

	err := p.run(ctx, sink)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ms(0, 40, 80, 0, 40, 80, 0, 40, 80), sink.pts)
	assert.Equal(t, 3, sink.ends)
	assert.Equal(t, 2, src.rewinds)
	assert.Equal(t, int64(9), p.delivered.Load())
}

func TestPlayerParksAtEnd(t *testing.T) {
	src := newFakeSource(2, 4, 4)
	p := newPlayer(src, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())

	ended := make(chan struct{}, 4)
	sink := &recordingSink{onEnd: func(int) { ended <- struct{}{} }}

	done := make(chan error, 1)
	go func() { done <- p.run(ctx, sink) }()

	<-ended
	select {
	case <-ended:
		t.Fatal("end of stream signalled twice without a resume")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, p.Resume())
	<-ended

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.pts, 2, "resume without seek stays at the end")
	assert.Zero(t, src.rewinds)
}

func TestPlayerDownscales(t *testing.T) {
	src := newFakeSource(1, 100, 50)
	p := newPlayer(src, 0, 10)
	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{onEnd: func(int) { cancel() }}

	assert.ErrorIs(t, p.run(ctx, sink), context.Canceled)
	require.Len(t, sink.sizes, 1)
	assert.Equal(t, [2]int{10, 5}, sink.sizes[0])
}

func TestPlayerSourceError(t *testing.T) {
	src := newFakeSource(3, 4, 4)
	src.failAt = 1
	p := newPlayer(src, 0, 0)
	err := p.run(context.Background(), &recordingSink{})
	assert.EqualError(t, err, "corrupt packet")
}

func TestPlayerCountsRefusedFrames(t *testing.T) {
	src := newFakeSource(2, 4, 4)
	p := newPlayer(src, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{reject: true, onEnd: func(int) { cancel() }}

	assert.ErrorIs(t, p.run(ctx, sink), context.Canceled)
	assert.Equal(t, int64(2), p.refused.Load())
	assert.Zero(t, p.delivered.Load())
}

func TestPlayerPacesFrames(t *testing.T) {
	src := newFakeSource(3, 4, 4)
	p := newPlayer(src, 10*time.Millisecond, 0)
	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{onEnd: func(int) { cancel() }}

	start := time.Now()
	assert.ErrorIs(t, p.run(ctx, sink), context.Canceled)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPlayerDrivesLoopingLayer(t *testing.T) {
	src := newFakeSource(2, 8, 8)
	p := newPlayer(src, 0, 0)
	quad := geo.Quad{
		{Lat: 1, Lng: 0}, {Lat: 1, Lng: 1},
		{Lat: 0, Lng: 1}, {Lat: 0, Lng: 0},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var layer *videolayer.Layer
	layer, err := videolayer.New("loop", p, quad, &videolayer.Options{
		OnStateChanged: func(_, to playback.State) {
			if to == playback.StateRestarting && layer.Stats().Restarts == 3 {
				cancel()
			}
		},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, p.run(ctx, layer), context.Canceled)
	assert.Equal(t, 2, src.rewinds, "third restart cancelled before the rewind")
	assert.Equal(t, int64(6), layer.Stats().Submitted)
}

func TestInfoInterval(t *testing.T) {
	assert.Equal(t, 40*time.Millisecond, Info{FrameRate: 25}.Interval())
	assert.Zero(t, Info{}.Interval())
}
