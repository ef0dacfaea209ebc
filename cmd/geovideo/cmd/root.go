// Package cmd implements the geovideo CLI commands.
//
// The root command dispatches to subcommands (validate, geometry, probe,
// simulate, version). Each subcommand registers itself from an init
// function with [RegisterCommand].
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/go-drift/geovideo/cmd/geovideo/internal/config"
	"github.com/go-drift/geovideo/pkg/errors"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "geovideo",
	Short: "Video textures on geographic quads",
	Long: `geovideo checks and previews scenes of video layers draped over
geographic quads.

A scene file (geovideo.yaml) lists layers with an id, a media source, a
loop flag, and four [lat, lng] corners ordered top-left, top-right,
bottom-right, bottom-left.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		errors.SetHandler(&errors.LogHandler{Verbose: verbose})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output and stack traces")
}

// RegisterCommand adds a subcommand to the CLI.
func RegisterCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return rootCmd.Execute()
}

// scenePath returns args[0] or the nearest geovideo.yaml above the working
// directory.
func scenePath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return config.FindScene(wd)
}
