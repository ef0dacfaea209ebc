// Package decode feeds frames from a media file into a [frame.Sink].
//
// [File] demuxes and decodes the first video stream of a file with FFmpeg
// (through reisen), converts each picture to an RGBA8 [frame.Buffer], and
// paces delivery by the stream's frame rate. It implements the decoder
// control surface a layer expects: [File.SeekToStart] and [File.Resume]
// return immediately and take effect on the decoding goroutine.
//
//	f, err := decode.Open("harbor.mp4", decode.Options{})
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//	layer, _ := videolayer.New("harbor", f, quad, nil)
//	go f.Run(ctx, layer)
package decode

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zergon321/reisen"

	"github.com/go-drift/geovideo/pkg/frame"
)

// Options configures a File.
type Options struct {
	// MaxSize downscales frames whose width or height exceeds it. Zero
	// keeps the native size.
	MaxSize int
	// FrameInterval overrides the pacing derived from the stream's frame
	// rate. A negative value delivers frames as fast as they decode.
	FrameInterval time.Duration
}

// Info describes the decoded video stream.
type Info struct {
	Path      string
	Codec     string
	Width     int
	Height    int
	FrameRate float64
	Duration  time.Duration
}

// Interval returns the time between frames at the stream's frame rate.
func (i Info) Interval() time.Duration {
	if i.FrameRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / i.FrameRate)
}

// File is an open media file ready to decode.
type File struct {
	*player

	info  Info
	media *reisen.Media
	video *reisen.VideoStream

	closeOnce sync.Once
}

// Open opens path and prepares its first video stream for decoding.
func Open(path string, opts Options) (*File, error) {
	media, err := reisen.NewMedia(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	streams := media.VideoStreams()
	if len(streams) == 0 {
		media.Close()
		return nil, fmt.Errorf("open %s: no video stream", path)
	}
	if err := media.OpenDecode(); err != nil {
		media.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	video := streams[0]
	if err := video.Open(); err != nil {
		media.CloseDecode()
		media.Close()
		return nil, fmt.Errorf("open %s video stream: %w", path, err)
	}

	info := Info{
		Path:   path,
		Codec:  video.CodecName(),
		Width:  video.Width(),
		Height: video.Height(),
	}
	if num, den := video.FrameRate(); num > 0 && den > 0 {
		info.FrameRate = float64(num) / float64(den)
	}
	if d, err := media.Duration(); err == nil {
		info.Duration = d
	}

	interval := info.Interval()
	switch {
	case opts.FrameInterval > 0:
		interval = opts.FrameInterval
	case opts.FrameInterval < 0:
		interval = 0
	}

	f := &File{info: info, media: media, video: video}
	f.player = newPlayer(&reisenSource{media: media, video: video}, interval, opts.MaxSize)
	f.log = logrus.WithFields(logrus.Fields{"path": path})
	return f, nil
}

// Info returns the stream description gathered at Open.
func (f *File) Info() Info {
	return f.info
}

// Run decodes and delivers frames to sink until ctx is cancelled or
// decoding fails. At end of stream it calls sink.EndOfStream and waits for
// Resume. Run must not be called concurrently with itself or Close.
func (f *File) Run(ctx context.Context, sink frame.Sink) error {
	f.log.WithFields(logrus.Fields{
		"codec":  f.info.Codec,
		"width":  f.info.Width,
		"height": f.info.Height,
		"fps":    f.info.FrameRate,
	}).Debug("decoding started")
	err := f.run(ctx, sink)
	f.log.WithFields(logrus.Fields{
		"delivered": f.delivered.Load(),
		"refused":   f.refused.Load(),
	}).Debug("decoding stopped")
	return err
}

// Close releases the decoder.
func (f *File) Close() error {
	var err error
	f.closeOnce.Do(func() {
		err = f.video.Close()
		if cerr := f.media.CloseDecode(); err == nil {
			err = cerr
		}
		f.media.Close()
	})
	return err
}

type reisenSource struct {
	media *reisen.Media
	video *reisen.VideoStream
}

func (s *reisenSource) next() (image.Image, time.Duration, bool, error) {
	for {
		packet, gotPacket, err := s.media.ReadPacket()
		if err != nil {
			return nil, 0, false, fmt.Errorf("read packet: %w", err)
		}
		if !gotPacket {
			return nil, 0, false, nil
		}
		if packet.Type() != reisen.StreamVideo || packet.StreamIndex() != s.video.Index() {
			continue
		}

		videoFrame, gotFrame, err := s.video.ReadVideoFrame()
		if err != nil {
			return nil, 0, false, fmt.Errorf("decode frame: %w", err)
		}
		if !gotFrame {
			return nil, 0, false, nil
		}
		if videoFrame == nil {
			continue
		}
		pts, err := videoFrame.PresentationOffset()
		if err != nil {
			pts = 0
		}
		return videoFrame.Image(), pts, true, nil
	}
}

func (s *reisenSource) rewind() error {
	return s.video.Rewind(0)
}
