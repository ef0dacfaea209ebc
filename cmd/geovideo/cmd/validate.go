package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-drift/geovideo/cmd/geovideo/internal/config"
	"github.com/go-drift/geovideo/pkg/videolayer"
)

func init() {
	RegisterCommand(&cobra.Command{
		Use:   "validate [scene]",
		Short: "Check a scene file",
		Long: `Parse a scene file, check its host.min_api against this build's layer
API, and validate every quad. Sources that are local files must exist.

Without an argument the nearest geovideo.yaml above the working directory
is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	})
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, err := scenePath(args)
	if err != nil {
		return err
	}
	res, err := config.Resolve(path, videolayer.HostAPIVersion)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, l := range res.Layers {
		if _, err := videolayer.New(l.ID, nil, l.Quad, nil); err != nil {
			return err
		}
		if l.Source != "" && isLocal(l.Source) {
			if _, err := os.Stat(l.Source); err != nil {
				return fmt.Errorf("layer %q: source: %w", l.ID, err)
			}
		}
		antimeridian := ""
		if l.Quad.CrossesAntimeridian() {
			antimeridian = " (crosses antimeridian)"
		}
		fmt.Fprintf(out, "ok  %-16s loop=%-5t %s%s\n", l.ID, l.Loop, l.Source, antimeridian)
	}
	fmt.Fprintf(out, "%d layer(s) valid in %s\n", len(res.Layers), res.Path)
	return nil
}
