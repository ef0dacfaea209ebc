// Package config loads geovideo.yaml scene files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/geovideo/pkg/geo"
)

// FileName is the scene file looked up by FindScene.
const FileName = "geovideo.yaml"

// Scene is the parsed contents of a scene file.
type Scene struct {
	Host   HostConfig    `yaml:"host"`
	Layers []LayerConfig `yaml:"layers"`
}

// HostConfig describes requirements on the embedding renderer.
type HostConfig struct {
	// MinAPI is the lowest layer API version the scene was written for.
	MinAPI string `yaml:"min_api,omitempty"`
	// MaxTextureSize is the device texture limit to validate media against.
	MaxTextureSize int `yaml:"max_texture_size,omitempty"`
}

// LayerConfig is one video layer.
type LayerConfig struct {
	ID      string       `yaml:"id"`
	Source  string       `yaml:"source,omitempty"`
	Loop    *bool        `yaml:"loop,omitempty"`
	MaxSize int          `yaml:"max_size,omitempty"`
	Quad    [][2]float64 `yaml:"quad"`
}

// Layer is a validated layer with defaults applied.
type Layer struct {
	ID      string
	Source  string
	Loop    bool
	MaxSize int
	Quad    geo.Quad
}

// Resolved contains the validated scene.
type Resolved struct {
	Path           string
	MinAPI         string
	MaxTextureSize int
	Layers         []Layer
}

// DefaultMaxTextureSize is assumed when the scene does not name a limit.
const DefaultMaxTextureSize = 4096

// Load reads and parses the scene file at path.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var scene Scene
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &scene, nil
}

// Resolve loads the scene at path, checks it against the running layer API
// version, and validates every layer.
func Resolve(path, apiVersion string) (*Resolved, error) {
	scene, err := Load(path)
	if err != nil {
		return nil, err
	}

	minAPI := strings.TrimSpace(scene.Host.MinAPI)
	if minAPI != "" {
		if err := checkAPI(minAPI, apiVersion); err != nil {
			return nil, err
		}
	}

	maxTex := scene.Host.MaxTextureSize
	if maxTex < 0 {
		return nil, fmt.Errorf("host.max_texture_size must not be negative (got %d)", maxTex)
	}
	if maxTex == 0 {
		maxTex = DefaultMaxTextureSize
	}

	if len(scene.Layers) == 0 {
		return nil, fmt.Errorf("%s defines no layers", path)
	}

	dir := filepath.Dir(path)
	seen := make(map[string]bool)
	layers := make([]Layer, 0, len(scene.Layers))
	for i, lc := range scene.Layers {
		layer, err := resolveLayer(lc, dir)
		if err != nil {
			return nil, fmt.Errorf("layers[%d]: %w", i, err)
		}
		if seen[layer.ID] {
			return nil, fmt.Errorf("layers[%d]: duplicate id %q", i, layer.ID)
		}
		seen[layer.ID] = true
		layers = append(layers, layer)
	}

	return &Resolved{
		Path:           path,
		MinAPI:         minAPI,
		MaxTextureSize: maxTex,
		Layers:         layers,
	}, nil
}

// FindScene walks up from dir to find a scene file.
func FindScene(dir string) (string, error) {
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found", FileName)
		}
		dir = parent
	}
}

func checkAPI(minAPI, apiVersion string) error {
	if !strings.HasPrefix(minAPI, "v") {
		minAPI = "v" + minAPI
	}
	if !semver.IsValid(minAPI) {
		return fmt.Errorf("host.min_api %q is not a semantic version", minAPI)
	}
	if semver.Major(minAPI) != semver.Major(apiVersion) {
		return fmt.Errorf("host.min_api %s is incompatible with layer API %s", minAPI, apiVersion)
	}
	if semver.Compare(minAPI, apiVersion) > 0 {
		return fmt.Errorf("scene requires layer API %s, have %s", minAPI, apiVersion)
	}
	return nil
}

func resolveLayer(lc LayerConfig, dir string) (Layer, error) {
	id := strings.TrimSpace(lc.ID)
	if id == "" {
		return Layer{}, fmt.Errorf("id is required")
	}
	if len(lc.Quad) != 4 {
		return Layer{}, fmt.Errorf("layer %q: quad needs 4 corners [lat, lng] (got %d)", id, len(lc.Quad))
	}
	if lc.MaxSize < 0 {
		return Layer{}, fmt.Errorf("layer %q: max_size must not be negative", id)
	}

	var q geo.Quad
	for i, c := range lc.Quad {
		q[i] = geo.LatLng{Lat: c[0], Lng: c[1]}
	}
	if err := q.Validate(); err != nil {
		return Layer{}, fmt.Errorf("layer %q: %w", id, err)
	}

	source := strings.TrimSpace(lc.Source)
	if source != "" && !filepath.IsAbs(source) && !strings.Contains(source, "://") {
		source = filepath.Join(dir, source)
	}

	loop := true
	if lc.Loop != nil {
		loop = *lc.Loop
	}

	return Layer{
		ID:      id,
		Source:  source,
		Loop:    loop,
		MaxSize: lc.MaxSize,
		Quad:    q,
	}, nil
}
