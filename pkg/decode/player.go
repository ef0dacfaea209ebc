package decode

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/go-drift/geovideo/pkg/frame"
)

// source yields decoded images in presentation order.
type source interface {
	// next returns the next image. ok is false at end of stream.
	next() (img image.Image, pts time.Duration, ok bool, err error)
	// rewind repositions the source at its first frame.
	rewind() error
}

// player paces a source into a frame.Sink and honors seek and resume
// requests. Control requests only set flags, so they are safe to call from
// inside the sink callbacks on the player's own goroutine.
type player struct {
	src      source
	interval time.Duration
	maxSize  int
	log      logrus.FieldLogger

	seek   atomic.Bool
	resume atomic.Bool
	wake   chan struct{}

	delivered atomic.Int64
	refused   atomic.Int64
}

func newPlayer(src source, interval time.Duration, maxSize int) *player {
	return &player{
		src:      src,
		interval: interval,
		maxSize:  maxSize,
		log:      logrus.StandardLogger(),
		wake:     make(chan struct{}, 1),
	}
}

// SeekToStart requests a rewind before the next frame is read.
func (p *player) SeekToStart() error {
	p.seek.Store(true)
	p.signal()
	return nil
}

// Resume restarts delivery after end of stream.
func (p *player) Resume() error {
	p.resume.Store(true)
	p.signal()
	return nil
}

func (p *player) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// run delivers frames until ctx is done or the source fails. After end of
// stream it parks until Resume is called.
func (p *player) run(ctx context.Context, sink frame.Sink) error {
	var tick <-chan time.Time
	if p.interval > 0 {
		t := time.NewTicker(p.interval)
		defer t.Stop()
		tick = t.C
	}

	ended := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.seek.Swap(false) {
			if err := p.src.rewind(); err != nil {
				return fmt.Errorf("rewind: %w", err)
			}
		}
		if ended {
			if !p.resume.Swap(false) {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-p.wake:
				}
				continue
			}
			ended = false
		}

		img, pts, ok, err := p.src.next()
		if err != nil {
			return err
		}
		if !ok {
			ended = true
			p.resume.Store(false)
			sink.EndOfStream()
			continue
		}

		if p.maxSize > 0 {
			img = frame.FitImage(img, p.maxSize)
		}
		if err := sink.SubmitFrame(frame.FromImage(img, pts)); err != nil {
			p.refused.Add(1)
			p.log.WithFields(logrus.Fields{"pts": pts, "error": err}).Debug("frame not accepted")
		} else {
			p.delivered.Add(1)
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
	}
}
