package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	J "cuelang.org/go/encoding/json"
	"cuelang.org/go/encoding/yaml"
	Y "gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaFile string

//go:embed default.yaml
var DEFAULT []byte

// source is one layer of configuration: the embedded defaults or a file.
type source struct {
	name string
	data []byte
}

func readSources(paths []string) ([]source, error) {
	if len(paths) == 0 {
		return []source{{name: "default.yaml", data: DEFAULT}}, nil
	}

	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		sources = append(sources, source{name: path, data: data})
	}
	return sources, nil
}

// build turns a source into a cue value according to its extension.
func (s source) build(ctx *cue.Context) (cue.Value, error) {
	var value cue.Value

	switch filepath.Ext(s.name) {
	case ".json":
		expr, err := J.Extract(s.name, s.data)
		if err != nil {
			return value, err
		}
		value = ctx.BuildExpr(expr)
	case ".yaml", ".yml":
		file, err := yaml.Extract(s.name, s.data)
		if err != nil {
			return value, err
		}
		value = ctx.BuildFile(file)
	default:
		return value, fmt.Errorf("unsupported extension %q, use yaml or json", filepath.Ext(s.name))
	}

	return value, value.Err()
}

// Process layers the given configuration files over the schema in order and
// decodes the result. Fields no file sets keep the schema's defaults. With no
// files, the embedded default configuration is used. Every layer must agree
// with the schema on its own; relations between fields are only checked once
// all layers are merged.
func Process(configPaths []string) (*Config, error) {
	sources, err := readSources(configPaths)
	if err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	merged := ctx.CompileString(schemaFile)
	if err := merged.Err(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	for _, source := range sources {
		value, err := source.build(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not process config file %s: %w", source.name, err)
		}

		merged = merged.Unify(value)
		if err := merged.Validate(); err != nil {
			return nil, fmt.Errorf("config file %s is not valid: %w", source.name, err)
		}
	}

	data, err := merged.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("could not aggregate config: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the relations between fields that the schema does not
// express.
func (c *Config) Validate() error {
	if c.Gesture.MinForce > c.Gesture.MaxForce {
		return fmt.Errorf(
			"gesture.minForce (%v) is greater than gesture.maxForce (%v)",
			c.Gesture.MinForce,
			c.Gesture.MaxForce,
		)
	}

	if c.Game.ObstacleMinHeight >= c.Game.ObstacleMaxHeight {
		return fmt.Errorf(
			"game.obstacleMinHeight (%d) must be less than game.obstacleMaxHeight (%d)",
			c.Game.ObstacleMinHeight,
			c.Game.ObstacleMaxHeight,
		)
	}

	if c.Game.GroundLevel+c.Game.PlayerHeight > c.Game.Height {
		return fmt.Errorf("the player does not fit in the play area")
	}

	return nil
}

// Marshal renders a processed configuration as YAML.
func Marshal(c *Config) ([]byte, error) {
	return Y.Marshal(c)
}
