// Package config loads patch recipes.
//
// A recipe is a YAML file, located by the --config flag or the
// SSFPATCH_CONFIG environment variable, listing the property patches to apply
// to a save and how the result is written back:
//
//	chunk_size: 1048576
//	backup:
//	  enabled: true
//	  compression: lz4
//	patches:
//	  - selector: request-system
//	    property: Establish_Task_Build_Crane
//	    value_file: crane.jsonc
//	  - preset: build-crane
//
// Values are given inline (value) or in a JSONC file (value_file, resolved
// relative to the recipe). JSONC comments and trailing commas are stripped
// before the value is handed to the patch engine.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"ssfpatch"
	"ssfpatch/internal/savefile"
)

// EnvVar names the environment variable consulted when no --config is given.
const EnvVar = "SSFPATCH_CONFIG"

// Recipe is the top-level configuration document.
type Recipe struct {
	// ChunkSize is the uncompressed chunk size for re-encoding.
	// Default: 1048576
	ChunkSize int `yaml:"chunk_size"`

	Backup BackupConfig `yaml:"backup"`

	Patches []PatchConfig `yaml:"patches"`

	// dir is the recipe's directory, for value_file resolution.
	dir string
}

// BackupConfig controls the backup made before overwriting a save.
type BackupConfig struct {
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled"`
	// Compression is none, lz4 or zstd. Default: none
	Compression string `yaml:"compression"`
}

// PatchConfig is one property patch. Either Preset, or Selector + Property
// with exactly one of Value / ValueFile.
type PatchConfig struct {
	Preset    string `yaml:"preset"`
	Selector  string `yaml:"selector"`
	Property  string `yaml:"property"`
	Value     string `yaml:"value"`
	ValueFile string `yaml:"value_file"`
}

// Default returns a recipe with no patches.
func Default() *Recipe {
	return &Recipe{ChunkSize: ssfpatch.DefaultChunkSize}
}

// Path returns the explicit path, else $SSFPATCH_CONFIG, else "".
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(EnvVar)
}

// Load reads and validates a recipe file.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.dir = filepath.Dir(path)
	return r, nil
}

// Parse decodes a recipe. Unknown keys are rejected.
func Parse(data []byte) (*Recipe, error) {
	r := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(r); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks field combinations without reading value files.
func (r *Recipe) Validate() error {
	if r.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative, got %d", r.ChunkSize)
	}
	if _, err := r.BackupCompression(); err != nil {
		return err
	}
	for i, p := range r.Patches {
		if p.Preset != "" {
			if p.Selector != "" || p.Property != "" || p.Value != "" || p.ValueFile != "" {
				return fmt.Errorf("patches[%d]: preset cannot be combined with other fields", i)
			}
			continue
		}
		if p.Selector == "" || p.Property == "" {
			return fmt.Errorf("patches[%d]: selector and property are required", i)
		}
		if (p.Value == "") == (p.ValueFile == "") {
			return fmt.Errorf("patches[%d]: exactly one of value and value_file is required", i)
		}
	}
	return nil
}

// BackupEnabled reports the effective backup setting.
func (r *Recipe) BackupEnabled() bool {
	return r.Backup.Enabled == nil || *r.Backup.Enabled
}

// BackupCompression parses backup.compression.
func (r *Recipe) BackupCompression() (savefile.Compression, error) {
	return savefile.ParseCompression(r.Backup.Compression)
}

// Specs resolves every patch into a PatchSpec, reading value files.
func (r *Recipe) Specs() ([]ssfpatch.PatchSpec, error) {
	specs := make([]ssfpatch.PatchSpec, 0, len(r.Patches))
	for i, p := range r.Patches {
		if p.Preset != "" {
			spec, err := ssfpatch.Preset(p.Preset)
			if err != nil {
				return nil, fmt.Errorf("patches[%d]: %w", i, err)
			}
			specs = append(specs, spec)
			continue
		}

		value := []byte(p.Value)
		if p.ValueFile != "" {
			path := p.ValueFile
			if !filepath.IsAbs(path) && r.dir != "" {
				path = filepath.Join(r.dir, path)
			}
			v, err := ReadValueFile(path)
			if err != nil {
				return nil, fmt.Errorf("patches[%d]: %w", i, err)
			}
			value = v
		} else {
			value = jsonc.ToJSON(value)
		}
		specs = append(specs, ssfpatch.PatchSpec{Selector: p.Selector, Property: p.Property, Value: value})
	}
	return specs, nil
}

// ReadValueFile reads a JSONC replacement value and returns plain JSON.
func ReadValueFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading value file %s: %w", path, err)
	}
	return jsonc.ToJSON(data), nil
}
