package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/go-drift/geovideo/cmd/geovideo/internal/config"
	"github.com/go-drift/geovideo/pkg/decode"
	"github.com/go-drift/geovideo/pkg/errors"
	"github.com/go-drift/geovideo/pkg/gpu"
	"github.com/go-drift/geovideo/pkg/gputest"
	"github.com/go-drift/geovideo/pkg/render"
	"github.com/go-drift/geovideo/pkg/videolayer"
)

var (
	simulateDuration time.Duration
	simulateFPS      int
)

func init() {
	simulate := &cobra.Command{
		Use:   "simulate [scene]",
		Short: "Play a scene against a headless renderer",
		Long: `Decode every layer's source and drive attach, draw, and detach from a
simulated host render loop with no GPU. Prints per-layer frame statistics:
frames submitted, dropped before drawing, uploaded, texture reallocations,
draws, and loop restarts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSimulate,
	}
	simulate.Flags().DurationVar(&simulateDuration, "duration", 5*time.Second, "how long to run the render loop")
	simulate.Flags().IntVar(&simulateFPS, "fps", 60, "host render loop rate")
	RegisterCommand(simulate)
}

type simulated struct {
	layer *videolayer.Layer
	file  *decode.File
	done  chan error
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simulateFPS <= 0 {
		return fmt.Errorf("--fps must be positive")
	}
	path, err := scenePath(args)
	if err != nil {
		return err
	}
	res, err := config.Resolve(path, videolayer.HostAPIVersion)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	backend := gputest.New()
	backend.MaxSize = res.MaxTextureSize

	var layers []*simulated
	defer func() {
		cancel()
		for _, s := range layers {
			if s.file == nil {
				continue
			}
			if err := <-s.done; err != nil && !errors.Is(err, context.Canceled) {
				logrus.WithFields(logrus.Fields{"layer": s.layer.ID()}).WithError(err).Warn("decoder stopped")
			}
			s.file.Close()
		}
	}()

	for _, l := range res.Layers {
		loop := l.Loop
		layer, err := videolayer.New(l.ID, nil, l.Quad, &videolayer.Options{Loop: &loop})
		if err != nil {
			return err
		}
		s := &simulated{layer: layer}
		layers = append(layers, s)
		if l.Source == "" {
			continue
		}

		maxSize := l.MaxSize
		if maxSize == 0 {
			maxSize = res.MaxTextureSize
		}
		f, err := decode.Open(l.Source, decode.Options{MaxSize: maxSize})
		if err != nil {
			return fmt.Errorf("layer %q: %w", l.ID, err)
		}
		s.file = f
		s.done = make(chan error, 1)
		layer.SetSource(f)
		go func() { s.done <- f.Run(ctx, layer) }()
	}

	for _, s := range layers {
		if err := s.layer.Attach(render.Context{Graphics: backend}); err != nil {
			return err
		}
	}

	projection := gpu.Ortho(0, 1, 1, 0, -1, 1)
	tick := time.NewTicker(time.Second / time.Duration(simulateFPS))
	defer tick.Stop()
	deadline := time.After(simulateDuration)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-deadline:
			break loop
		case <-tick.C:
			for _, s := range layers {
				s.layer.Draw(projection)
			}
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "layer\tstate\tsubmitted\tdropped\trejected\tuploaded\treallocs\tdraws\trestarts")
	for _, s := range layers {
		st := s.layer.Stats()
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n", s.layer.ID(), s.layer.State(),
			st.Submitted, st.Dropped, st.Rejected, st.Uploaded, st.Reallocations, st.Draws, st.Restarts)
		s.layer.Detach()
	}
	if err := w.Flush(); err != nil {
		return err
	}

	programs, textures, geoms := backend.Live()
	if programs+textures+geoms != 0 {
		return fmt.Errorf("leaked GPU objects after detach: %d programs, %d textures, %d geometries", programs, textures, geoms)
	}
	return nil
}
