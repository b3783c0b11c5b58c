package ephem

import (
	"fmt"
	"time"
)

// Pass describes a single predicted overhead pass, from rise above the
// elevation mask through set below it. Times are bounded by the sample
// step, not exact horizon crossings.
type Pass struct {
	Rise          time.Time
	Set           time.Time
	Peak          time.Time
	PeakElevation float64
	RiseAzimuth   float64
	SetAzimuth    float64
	Duration      time.Duration
}

// PassOptions tunes the prediction sweep. Zero values take the defaults.
type PassOptions struct {
	HorizonHours    int
	StepSeconds     int
	MinElevationDeg float64
}

const (
	DefaultHorizonHours    = 24
	DefaultStepSeconds     = 30
	DefaultMinElevationDeg = 10.0
)

func (o PassOptions) withDefaults() PassOptions {
	if o.HorizonHours <= 0 {
		o.HorizonHours = DefaultHorizonHours
	}
	if o.StepSeconds <= 0 {
		o.StepSeconds = DefaultStepSeconds
	}
	if o.MinElevationDeg == 0 {
		o.MinElevationDeg = DefaultMinElevationDeg
	}
	return o
}

// PredictPasses samples the position source at uniform steps across the
// horizon window and groups consecutive above-mask samples into passes.
// Samples the source fails to compute are treated as not visible.
func PredictPasses(src PositionSource, tle TLE, obs Observer, start time.Time, opts PassOptions) ([]Pass, error) {
	opts = opts.withDefaults()
	step := time.Duration(opts.StepSeconds) * time.Second
	end := start.Add(time.Duration(opts.HorizonHours) * time.Hour)

	var (
		passes   []Pass
		cur      *Pass
		computed int
		firstErr error
	)

	flush := func() {
		if cur != nil {
			cur.Duration = cur.Set.Sub(cur.Rise)
			passes = append(passes, *cur)
			cur = nil
		}
	}

	for t := start; !t.After(end); t = t.Add(step) {
		topo, err := src.PositionAt(tle, obs, t)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			flush()
			continue
		}
		computed++

		if !topo.Visible(opts.MinElevationDeg) {
			flush()
			continue
		}

		if cur == nil {
			cur = &Pass{
				Rise:          t,
				Peak:          t,
				PeakElevation: topo.ElevationDeg,
				RiseAzimuth:   topo.AzimuthDeg,
			}
		}
		cur.Set = t
		cur.SetAzimuth = topo.AzimuthDeg
		if topo.ElevationDeg > cur.PeakElevation {
			cur.PeakElevation = topo.ElevationDeg
			cur.Peak = t
		}
	}
	flush()

	if computed == 0 && firstErr != nil {
		return nil, fmt.Errorf("predict passes: %w", firstErr)
	}
	return passes, nil
}

// NextPass returns the first pass within the window, or false if none.
func NextPass(src PositionSource, tle TLE, obs Observer, start time.Time, opts PassOptions) (Pass, bool, error) {
	passes, err := PredictPasses(src, tle, obs, start, opts)
	if err != nil {
		return Pass{}, false, err
	}
	if len(passes) == 0 {
		return Pass{}, false, nil
	}
	return passes[0], true, nil
}
