// Package registry holds the static set of supported satellite constellations
// and the product vocabulary each one allows.
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// ErrInvalidName is returned for constellation names that cannot be used to
// derive view identifiers.
var ErrInvalidName = errors.New("invalid constellation name")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// SatelliteConfig lists what a constellation is allowed to produce.
type SatelliteConfig struct {
	ProductTypes     []string `json:"product_types"`
	ProcessingLevels []string `json:"processing_levels"`
	SensorModes      []string `json:"sensor_modes"`
}

// Entry pairs a constellation name with its configuration.
type Entry struct {
	Name   string
	Config SatelliteConfig
}

// Registry is an ordered, read-only mapping of constellation name to config.
type Registry struct {
	names   []string
	configs map[string]SatelliteConfig
}

// New builds a registry from entries, preserving their order.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{
		names:   make([]string, 0, len(entries)),
		configs: make(map[string]SatelliteConfig, len(entries)),
	}
	for _, e := range entries {
		if !namePattern.MatchString(e.Name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, e.Name)
		}
		if _, ok := r.configs[e.Name]; ok {
			return nil, fmt.Errorf("duplicate constellation %q", e.Name)
		}
		r.names = append(r.names, e.Name)
		r.configs[e.Name] = SatelliteConfig{
			ProductTypes:     slices.Clone(e.Config.ProductTypes),
			ProcessingLevels: slices.Clone(e.Config.ProcessingLevels),
			SensorModes:      slices.Clone(e.Config.SensorModes),
		}
	}
	return r, nil
}

// Default returns the constellations the catalog ships with.
func Default() *Registry {
	r, err := New(
		Entry{Name: "SENTINEL-1", Config: SatelliteConfig{
			ProductTypes:     []string{"GRD", "SLC"},
			ProcessingLevels: []string{"LEVEL1", "LEVEL2"},
			SensorModes:      []string{"IW", "EW", "STRIP"},
		}},
		Entry{Name: "SENTINEL-2", Config: SatelliteConfig{
			ProductTypes:     []string{"L2A"},
			ProcessingLevels: []string{"LEVEL2", "LEVEL3"},
			SensorModes:      []string{"L2A"},
		}},
		Entry{Name: "LANDSAT-8", Config: SatelliteConfig{
			ProductTypes:     []string{"OLI_TIRS"},
			ProcessingLevels: []string{"LEVEL1", "LEVEL2"},
			SensorModes:      []string{"OLI_TIRS"},
		}},
		Entry{Name: "LANDSAT-9", Config: SatelliteConfig{
			ProductTypes:     []string{"OLI_TIRS"},
			ProcessingLevels: []string{"LEVEL1", "LEVEL2"},
			SensorModes:      []string{"OLI_TIRS"},
		}},
		Entry{Name: "RCM", Config: SatelliteConfig{
			ProductTypes:     []string{"GRD"},
			ProcessingLevels: []string{"LEVEL1"},
			SensorModes:      []string{"SC50MA", "SCSDA"},
		}},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Names returns constellation names in registry order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Lookup returns the config for name. The boolean is false for unsupported
// constellations.
func (r *Registry) Lookup(name string) (SatelliteConfig, bool) {
	cfg, ok := r.configs[name]
	return cfg, ok
}

// Supported reports whether name is a registered constellation.
func (r *Registry) Supported(name string) bool {
	_, ok := r.configs[name]
	return ok
}

func (r *Registry) Len() int {
	return len(r.names)
}
