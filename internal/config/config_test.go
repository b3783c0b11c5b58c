package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "satmount.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, validate(Default()))
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `
[serial]
port = "/dev/ttyACM3"
baud = 115200

[station]
latitude = 42.3601
longitude = -71.0589

[tracker.pid]
kp = 95.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM3", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 42.3601, cfg.Station.Latitude)
	assert.Equal(t, 95.0, cfg.Tracker.PID.Kp)

	// Omitted fields keep defaults.
	assert.Equal(t, 250, cfg.Serial.ReadTimeoutMs)
	assert.Equal(t, 10.0, cfg.Station.MinElevation)
	assert.Equal(t, 500, cfg.Tracker.UpdateIntervalMs)
	assert.Equal(t, 0.05, cfg.Tracker.PID.DeadbandDeg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad latitude":  "[station]\nlatitude = 123.0\n",
		"bad elevation": "[station]\nmin_elevation = 95.0\n",
		"bad baud":      "[serial]\nbaud = -1\n",
		"bad interval":  "[tracker]\nupdate_interval_ms = 5\n",
		"bad goto iter": "[tracker]\ngoto_max_iterations = 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
