package ctl

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config fetches and displays the daemon's running configuration.
func Config(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	// Decode into a generic map to preserve all fields for both display modes.
	var raw json.RawMessage
	if err := getJSON(baseURL, "/api/config", &raw); err != nil {
		return err
	}

	if jsonOutput {
		var v any
		_ = json.Unmarshal(raw, &v)
		return printJSON(v)
	}

	// Decode into ordered sections for human-readable output.
	var cfg struct {
		Data struct {
			Root string `json:"root"`
		} `json:"data"`
		Logging struct {
			Level string `json:"level"`
		} `json:"logging"`
		Server struct {
			Bind string `json:"bind"`
		} `json:"server"`
		Serial struct {
			Port          string `json:"port"`
			Baud          int    `json:"baud"`
			ReadTimeoutMs int    `json:"read_timeout_ms"`
			AutoDiscover  bool   `json:"auto_discover"`
		} `json:"serial"`
		Station struct {
			Latitude     float64 `json:"latitude"`
			Longitude    float64 `json:"longitude"`
			Altitude     float64 `json:"altitude"`
			MinElevation float64 `json:"min_elevation"`
		} `json:"station"`
		Predict struct {
			TLEURL          string `json:"tle_url"`
			TLERefreshHours int    `json:"tle_refresh_hours"`
			LookaheadHours  int    `json:"lookahead_hours"`
			StepSeconds     int    `json:"step_seconds"`
		} `json:"predict"`
		Tracker struct {
			UpdateIntervalMs  int     `json:"update_interval_ms"`
			GotoTickMs        int     `json:"goto_tick_ms"`
			GotoMaxIterations int     `json:"goto_max_iterations"`
			GotoThresholdDeg  float64 `json:"goto_threshold_deg"`
			MinSafeAltDeg     float64 `json:"min_safe_alt_deg"`
			PID               struct {
				Kp            float64 `json:"kp"`
				Ki            float64 `json:"ki"`
				Kd            float64 `json:"kd"`
				DeadbandDeg   float64 `json:"deadband_deg"`
				IntegralClamp float64 `json:"integral_clamp_deg"`
				OutputClampMs float64 `json:"output_clamp_ms"`
				MinPulseMs    float64 `json:"min_pulse_ms"`
			} `json:"pid"`
		} `json:"tracker"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(header("  DAEMON CONFIGURATION"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 50)))

	section := func(name string) {
		fmt.Printf("\n  %s\n", colorize(bold, "["+name+"]"))
	}
	field := func(key string, val any) {
		fmt.Printf("    %-22s %v\n", colorize(dim, key+":"), val)
	}

	section("data")
	field("root", cfg.Data.Root)

	section("logging")
	field("level", cfg.Logging.Level)

	section("server")
	field("bind", cfg.Server.Bind)

	section("serial")
	field("port", cfg.Serial.Port)
	field("baud", cfg.Serial.Baud)
	field("read_timeout_ms", cfg.Serial.ReadTimeoutMs)
	field("auto_discover", cfg.Serial.AutoDiscover)

	section("station")
	field("latitude", cfg.Station.Latitude)
	field("longitude", cfg.Station.Longitude)
	field("altitude", cfg.Station.Altitude)
	field("min_elevation", cfg.Station.MinElevation)

	section("predict")
	field("tle_url", cfg.Predict.TLEURL)
	field("tle_refresh_hours", cfg.Predict.TLERefreshHours)
	field("lookahead_hours", cfg.Predict.LookaheadHours)
	field("step_seconds", cfg.Predict.StepSeconds)

	section("tracker")
	field("update_interval_ms", cfg.Tracker.UpdateIntervalMs)
	field("goto_tick_ms", cfg.Tracker.GotoTickMs)
	field("goto_max_iterations", cfg.Tracker.GotoMaxIterations)
	field("goto_threshold_deg", cfg.Tracker.GotoThresholdDeg)
	field("min_safe_alt_deg", cfg.Tracker.MinSafeAltDeg)
	field("pid.kp", cfg.Tracker.PID.Kp)
	field("pid.ki", cfg.Tracker.PID.Ki)
	field("pid.kd", cfg.Tracker.PID.Kd)
	field("pid.deadband_deg", cfg.Tracker.PID.DeadbandDeg)

	fmt.Println()

	return nil
}
