package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	Y "gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestProcessDefault(t *testing.T) {
	config, err := Process([]string{})
	require.NoError(t, err)

	assert.Equal(t, 12345, config.Sensor.Port)
	assert.Equal(t, 16*time.Millisecond, config.Clock.TickInterval())
	assert.Equal(t, time.Second, config.Clock.HealthTimeout())
	assert.Equal(t, 2.0, config.Gesture.DeltaThreshold)
	assert.Equal(t, 5.0, config.Gesture.AngleThreshold)
	assert.Equal(t, 8.0, config.Gesture.MinForce)
	assert.Equal(t, 18.0, config.Gesture.MaxForce)
	assert.Equal(t, 1.5, config.Gesture.ForceScale)
	assert.Equal(t, 0.5, config.Game.Gravity)
	assert.Equal(t, 100, config.Game.SpawnInterval)
	assert.Equal(t, 40.0, config.Game.ObstacleWidth)
	assert.True(t, config.Shell.Enabled)
	assert.False(t, config.Feed.Enabled)
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()

	// yaml config
	{
		yaml := writeConfig(t, dir, "config.yaml", `
sensor:
  port: 2000
`)
		config, err := Process([]string{yaml})
		require.NoError(t, err)
		assert.Equal(t, 2000, config.Sensor.Port)
		// everything else falls back to the schema defaults
		assert.Equal(t, "0.0.0.0", config.Sensor.Address)
		assert.Equal(t, 16, config.Clock.TickMillis)
	}

	// json config
	{
		json := writeConfig(t, dir, "config.json", `{
  "gesture": {
    "minForce": 6,
    "maxForce": 12
  }
}`)
		config, err := Process([]string{json})
		require.NoError(t, err)
		assert.Equal(t, 6.0, config.Gesture.MinForce)
		assert.Equal(t, 12.0, config.Gesture.MaxForce)
	}

	// multiple yaml
	{
		yaml1 := writeConfig(t, dir, "config1.yaml", `
sensor:
  port: 3000
`)
		yaml2 := writeConfig(t, dir, "config2.yaml", `
feed:
  enabled: true
`)
		config, err := Process([]string{yaml1, yaml2})
		require.NoError(t, err)
		assert.Equal(t, 3000, config.Sensor.Port)
		assert.True(t, config.Feed.Enabled)
	}

	// relations are checked after every layer is merged
	{
		lower := writeConfig(t, dir, "min.yaml", "gesture:\n  minForce: 20\n")
		upper := writeConfig(t, dir, "max.json", `{"gesture": {"maxForce": 25}}`)
		config, err := Process([]string{lower, upper})
		require.NoError(t, err)
		assert.Equal(t, 20.0, config.Gesture.MinForce)
		assert.Equal(t, 25.0, config.Gesture.MaxForce)
	}
}

func TestProcessInvalid(t *testing.T) {
	dir := t.TempDir()

	// missing file
	_, err := Process([]string{filepath.Join(dir, "missing.yaml")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	// unknown extension
	_, err = Process([]string{writeConfig(t, dir, "config.toml", "a = 1")})
	assert.ErrorContains(t, err, "config.toml")

	// wrong type
	_, err = Process([]string{writeConfig(t, dir, "port.yaml", `
sensor:
  port: "twelve"
`)})
	assert.Error(t, err)

	// out of range
	_, err = Process([]string{writeConfig(t, dir, "range.yaml", `
sensor:
  port: 70000
`)})
	assert.Error(t, err)

	// conflicting files
	_, err = Process([]string{
		writeConfig(t, dir, "a.yaml", "sensor:\n  port: 1000\n"),
		writeConfig(t, dir, "b.yaml", "sensor:\n  port: 2000\n"),
	})
	assert.Error(t, err)

	// relations the schema cannot express
	_, err = Process([]string{writeConfig(t, dir, "force.yaml", `
gesture:
  minForce: 20
  maxForce: 10
`)})
	assert.Error(t, err)
}

func TestMarshal(t *testing.T) {
	config, err := Process([]string{})
	require.NoError(t, err)

	data, err := Marshal(config)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, Y.Unmarshal(data, &decoded))
	assert.Equal(t, *config, decoded)
	assert.Contains(t, string(data), "tickMillis: 16")
}
