package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-drift/geovideo/cmd/geovideo/internal/config"
	"github.com/go-drift/geovideo/pkg/geo"
	"github.com/go-drift/geovideo/pkg/videolayer"
)

func init() {
	RegisterCommand(&cobra.Command{
		Use:   "geometry [scene]",
		Short: "Print projected quad vertices",
		Long: `Print each layer's vertices in Web Mercator unit-square coordinates
together with their texture coordinates, as uploaded at attach time.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runGeometry,
	})
}

func runGeometry(cmd *cobra.Command, args []string) error {
	path, err := scenePath(args)
	if err != nil {
		return err
	}
	res, err := config.Resolve(path, videolayer.HostAPIVersion)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, l := range res.Layers {
		g, err := geo.Build(l.Quad, geo.WebMercator{})
		if err != nil {
			return fmt.Errorf("layer %q: %w", l.ID, err)
		}
		fmt.Fprintf(w, "%s\n", l.ID)
		fmt.Fprintf(w, "  corner\tlat, lng\tx\ty\tu, v\n")
		for i, v := range g.Vertices {
			c := geo.Corner(i)
			fmt.Fprintf(w, "  %s\t%s\t%.9f\t%.9f\t%g, %g\n", c, l.Quad.Corner(c), v.X, v.Y, v.U, v.V)
		}
		fmt.Fprintf(w, "  indices\t%v\n", g.Indices)
	}
	return w.Flush()
}
