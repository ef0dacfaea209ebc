package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-drift/geovideo/pkg/videolayer"
)

func init() {
	RegisterCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "geovideo %s (built %s), layer API %s\n", Version, BuildTime, videolayer.HostAPIVersion)
		},
	})
}
