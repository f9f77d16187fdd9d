package accel

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/achilleasa/polaris-accel/accel/bvh"
	"github.com/achilleasa/polaris-accel/asset"
)

// Config selects and tunes an acceleration structure. Zero values for the
// numeric fields select the defaults of the chosen structure.
type Config struct {
	Kind Kind `json:"kind"`

	// Leaf threshold for the BVH variants.
	LeafSize int `json:"leafSize,omitempty"`

	// BVH split method; either "sah" or "center".
	SplitMethod string `json:"splitMethod,omitempty"`

	// Octree subdivision limits.
	MaxDepth      int `json:"maxDepth,omitempty"`
	MaxPrimitives int `json:"maxPrimitives,omitempty"`

	// Restrict the brute force index to a single mesh.
	SingleMesh bool `json:"singleMesh,omitempty"`
}

// Get the default configuration: a SAH BVH.
func DefaultConfig() Config {
	return Config{
		Kind:        BVH,
		SplitMethod: bvh.SplitSAH.String(),
	}
}

// Check the configuration for invalid values.
func (c Config) Validate() error {
	if _, ok := kindNames[c.Kind]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(c.Kind))
	}
	if c.LeafSize < 0 {
		return fmt.Errorf("%w: leaf size must not be negative; got %d", ErrInvalidConfig, c.LeafSize)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max depth must not be negative; got %d", ErrInvalidConfig, c.MaxDepth)
	}
	if c.MaxPrimitives < 0 {
		return fmt.Errorf("%w: max primitives must not be negative; got %d", ErrInvalidConfig, c.MaxPrimitives)
	}
	if _, err := bvh.ParseSplitMethod(c.SplitMethod); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	return nil
}

// Load a JSON configuration from a local file or an http(s) URL. Fields
// missing from the document keep their DefaultConfig values.
func LoadConfig(pathToConfig string) (Config, error) {
	res, err := asset.NewResource(pathToConfig, nil)
	if err != nil {
		return Config{}, err
	}
	defer res.Close()

	return ReadConfig(res)
}

// Decode a JSON configuration from r on top of DefaultConfig.
func ReadConfig(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("accel: could not parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
