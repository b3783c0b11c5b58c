// Package track drives a mount to follow a satellite: a bounded GOTO
// convergence phase to get on target, then steady-state PID corrections
// delivered as timed motion pulses.
package track

import (
	"math"
	"time"
)

// PIDConfig tunes one correction axis. The same config is applied to both
// azimuth and elevation.
type PIDConfig struct {
	Kp float64 `toml:"kp"`
	Ki float64 `toml:"ki"`
	Kd float64 `toml:"kd"`

	// DeadbandDeg is the error magnitude below which no correction is sent.
	DeadbandDeg float64 `toml:"deadband_deg"`
	// IntegralClampDeg bounds the accumulated integral in degree-seconds.
	IntegralClampDeg float64 `toml:"integral_clamp_deg"`
	// OutputClampMs bounds the pulse magnitude in milliseconds.
	OutputClampMs float64 `toml:"output_clamp_ms"`
	// MinPulseMs suppresses pulses shorter than this outright.
	MinPulseMs int `toml:"min_pulse_ms"`
}

// DefaultPIDConfig returns the stock tuning.
func DefaultPIDConfig() PIDConfig {
	return PIDConfig{
		Kp:               80,
		Ki:               15,
		Kd:               20,
		DeadbandDeg:      0.05,
		IntegralClampDeg: 5.0,
		OutputClampMs:    3000,
		MinPulseMs:       30,
	}
}

// pidAxis is the controller state for one axis. Reset whenever tracking
// (re)starts so stale integral and derivative history cannot carry over.
type pidAxis struct {
	cfg      PIDConfig
	integral float64
	lastErr  float64
	lastAt   time.Time
	primed   bool
}

func (a *pidAxis) reset() {
	a.integral = 0
	a.lastErr = 0
	a.lastAt = time.Time{}
	a.primed = false
}

// update runs one PID step and returns a signed output in milliseconds.
// The sign selects direction; the magnitude is the pulse duration before
// rounding and minimum-pulse suppression.
func (a *pidAxis) update(errDeg float64, now time.Time, defaultDt time.Duration) float64 {
	dt := defaultDt.Seconds()
	if a.primed {
		if elapsed := now.Sub(a.lastAt).Seconds(); elapsed > 0 {
			dt = elapsed
		}
	}
	prevErr := a.lastErr
	a.lastErr = errDeg
	a.lastAt = now
	a.primed = true

	if math.Abs(errDeg) < a.cfg.DeadbandDeg {
		a.integral *= 0.9
		return 0
	}

	a.integral = clampAbs(a.integral+errDeg*dt, a.cfg.IntegralClampDeg)

	out := a.cfg.Kp * errDeg
	out += a.cfg.Ki * a.integral
	if dt > 0 {
		out += a.cfg.Kd * (errDeg - prevErr) / dt
	}
	return clampAbs(out, a.cfg.OutputClampMs)
}

func clampAbs(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
