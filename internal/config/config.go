// Package config handles loading, defaulting, and validation of the satmount
// TOML configuration file. Every section maps to a typed struct so the rest
// of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Data    DataConfig    `toml:"data"    json:"data"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	Server  ServerConfig  `toml:"server"  json:"server"`
	Serial  SerialConfig  `toml:"serial"  json:"serial"`
	Station StationConfig `toml:"station" json:"station"`
	Predict PredictConfig `toml:"predict" json:"predict"`
	Tracker TrackerConfig `toml:"tracker" json:"tracker"`
}

type DataConfig struct {
	Root string `toml:"root" json:"root"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

// SerialConfig describes the mount's serial link.
type SerialConfig struct {
	Port          string `toml:"port"            json:"port"`
	Baud          int    `toml:"baud"            json:"baud"`
	ReadTimeoutMs int    `toml:"read_timeout_ms" json:"read_timeout_ms"`
	AutoDiscover  bool   `toml:"auto_discover"   json:"auto_discover"`
}

type StationConfig struct {
	Latitude     float64 `toml:"latitude"      json:"latitude"`
	Longitude    float64 `toml:"longitude"     json:"longitude"`
	Altitude     float64 `toml:"altitude"      json:"altitude"`
	MinElevation float64 `toml:"min_elevation" json:"min_elevation"`
}

type PredictConfig struct {
	TLEURL          string `toml:"tle_url"           json:"tle_url"`
	TLERefreshHours int    `toml:"tle_refresh_hours" json:"tle_refresh_hours"`
	LookaheadHours  int    `toml:"lookahead_hours"   json:"lookahead_hours"`
	StepSeconds     int    `toml:"step_seconds"      json:"step_seconds"`
}

// TrackerConfig exposes every closed-loop tuning knob so field adjustments
// never require a rebuild.
type TrackerConfig struct {
	UpdateIntervalMs  int     `toml:"update_interval_ms"  json:"update_interval_ms"`
	GotoTickMs        int     `toml:"goto_tick_ms"        json:"goto_tick_ms"`
	GotoMaxIterations int     `toml:"goto_max_iterations" json:"goto_max_iterations"`
	GotoThresholdDeg  float64 `toml:"goto_threshold_deg"  json:"goto_threshold_deg"`
	MinSafeAltDeg     float64 `toml:"min_safe_alt_deg"    json:"min_safe_alt_deg"`

	PID    PIDConfig    `toml:"pid"    json:"pid"`
	Coarse CoarseConfig `toml:"coarse" json:"coarse"`
}

type PIDConfig struct {
	Kp               float64 `toml:"kp"                 json:"kp"`
	Ki               float64 `toml:"ki"                 json:"ki"`
	Kd               float64 `toml:"kd"                 json:"kd"`
	DeadbandDeg      float64 `toml:"deadband_deg"       json:"deadband_deg"`
	IntegralClampDeg float64 `toml:"integral_clamp_deg" json:"integral_clamp_deg"`
	OutputClampMs    float64 `toml:"output_clamp_ms"    json:"output_clamp_ms"`
	MinPulseMs       int     `toml:"min_pulse_ms"       json:"min_pulse_ms"`
}

type CoarseConfig struct {
	GainMsPerDeg       float64 `toml:"gain_ms_per_deg"       json:"gain_ms_per_deg"`
	CapMs              int     `toml:"cap_ms"                json:"cap_ms"`
	AzFastCapMs        int     `toml:"az_fast_cap_ms"        json:"az_fast_cap_ms"`
	AzFastThresholdDeg float64 `toml:"az_fast_threshold_deg" json:"az_fast_threshold_deg"`
	ElDeadbandDeg      float64 `toml:"el_deadband_deg"       json:"el_deadband_deg"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Data: DataConfig{
			Root: "/var/lib/satmount",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Bind: "0.0.0.0:8080",
		},
		Serial: SerialConfig{
			Port:          "/dev/ttyUSB0",
			Baud:          9600,
			ReadTimeoutMs: 250,
			AutoDiscover:  true,
		},
		Station: StationConfig{
			Latitude:     0.0,
			Longitude:    0.0,
			Altitude:     0.0,
			MinElevation: 10,
		},
		Predict: PredictConfig{
			TLEURL:          "https://celestrak.org/NORAD/elements/gp.php?CATNR=%d&FORMAT=tle",
			TLERefreshHours: 24,
			LookaheadHours:  24,
			StepSeconds:     30,
		},
		Tracker: TrackerConfig{
			UpdateIntervalMs:  500,
			GotoTickMs:        100,
			GotoMaxIterations: 60,
			GotoThresholdDeg:  1.0,
			MinSafeAltDeg:     5.0,
			PID: PIDConfig{
				Kp:               80,
				Ki:               15,
				Kd:               20,
				DeadbandDeg:      0.05,
				IntegralClampDeg: 5.0,
				OutputClampMs:    3000,
				MinPulseMs:       30,
			},
			Coarse: CoarseConfig{
				GainMsPerDeg:       100,
				CapMs:              800,
				AzFastCapMs:        3000,
				AzFastThresholdDeg: 10,
				ElDeadbandDeg:      0.3,
			},
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. An error is returned if the file can't be read,
// parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Data.Root == "" {
		return errors.New("data.root must not be empty")
	}
	if cfg.Serial.Baud <= 0 {
		return errors.New("serial.baud must be > 0")
	}
	if cfg.Serial.ReadTimeoutMs <= 0 {
		return errors.New("serial.read_timeout_ms must be > 0")
	}
	if cfg.Station.Latitude < -90 || cfg.Station.Latitude > 90 {
		return errors.New("station.latitude must be between -90 and 90")
	}
	if cfg.Station.Longitude < -180 || cfg.Station.Longitude > 180 {
		return errors.New("station.longitude must be between -180 and 180")
	}
	if cfg.Station.MinElevation < 0 || cfg.Station.MinElevation > 90 {
		return errors.New("station.min_elevation must be between 0 and 90")
	}
	if cfg.Predict.TLERefreshHours < 1 {
		return errors.New("predict.tle_refresh_hours must be >= 1")
	}
	if cfg.Predict.LookaheadHours < 1 {
		return errors.New("predict.lookahead_hours must be >= 1")
	}
	if cfg.Predict.StepSeconds < 1 {
		return errors.New("predict.step_seconds must be >= 1")
	}
	if cfg.Tracker.UpdateIntervalMs < 50 {
		return errors.New("tracker.update_interval_ms must be >= 50")
	}
	if cfg.Tracker.GotoTickMs < 10 {
		return errors.New("tracker.goto_tick_ms must be >= 10")
	}
	if cfg.Tracker.GotoMaxIterations < 1 {
		return errors.New("tracker.goto_max_iterations must be >= 1")
	}
	if cfg.Tracker.GotoThresholdDeg <= 0 {
		return errors.New("tracker.goto_threshold_deg must be > 0")
	}
	if cfg.Tracker.PID.MinPulseMs < 0 {
		return errors.New("tracker.pid.min_pulse_ms must be >= 0")
	}
	if cfg.Tracker.PID.OutputClampMs <= 0 {
		return errors.New("tracker.pid.output_clamp_ms must be > 0")
	}
	return nil
}
