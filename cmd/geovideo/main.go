// Command geovideo validates and previews video layer scenes.
package main

import (
	"os"

	"github.com/go-drift/geovideo/cmd/geovideo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
