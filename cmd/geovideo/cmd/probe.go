package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-drift/geovideo/cmd/geovideo/internal/config"
	"github.com/go-drift/geovideo/pkg/decode"
)

var probeMaxTextureSize int

func init() {
	probe := &cobra.Command{
		Use:   "probe <media>...",
		Short: "Inspect media files",
		Long: `Open each media file, print its video stream's codec, size, frame rate,
and duration, and check the frame size against the device texture limit.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runProbe,
	}
	probe.Flags().IntVar(&probeMaxTextureSize, "max-texture-size", config.DefaultMaxTextureSize, "device texture limit to check against")
	RegisterCommand(probe)
}

func runProbe(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var oversize []string
	for _, path := range args {
		f, err := decode.Open(path, decode.Options{})
		if err != nil {
			return err
		}
		info := f.Info()
		f.Close()

		fmt.Fprintf(out, "%s\n  codec     %s\n  size      %dx%d\n  framerate %.3f fps\n  duration  %s\n",
			info.Path, info.Codec, info.Width, info.Height, info.FrameRate, info.Duration)
		if probeMaxTextureSize > 0 && (info.Width > probeMaxTextureSize || info.Height > probeMaxTextureSize) {
			fmt.Fprintf(out, "  exceeds texture limit %d; set max_size to downscale\n", probeMaxTextureSize)
			oversize = append(oversize, path)
		}
	}
	if len(oversize) > 0 {
		return fmt.Errorf("%d file(s) exceed the texture limit: %s", len(oversize), strings.Join(oversize, ", "))
	}
	return nil
}

func isLocal(source string) bool {
	return !strings.Contains(source, "://")
}
