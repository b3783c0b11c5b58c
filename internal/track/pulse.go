package track

import (
	"math"
	"time"

	"github.com/kwheeler87/satmount/internal/protocol"
)

// axisPulse is one planned motion burst: move in dir for dur, then stop.
// A zero dur means no motion on that axis.
type axisPulse struct {
	dir protocol.Direction
	dur time.Duration
}

func (p axisPulse) active() bool { return p.dur > 0 }

// azimuthPulse converts a signed PID output to a pulse. Positive output
// moves toward increasing azimuth (east), negative toward decreasing (west).
func azimuthPulse(outputMs float64, minPulseMs int) axisPulse {
	ms := int(math.Round(math.Abs(outputMs)))
	if ms < minPulseMs {
		return axisPulse{}
	}
	dir := protocol.East
	if outputMs < 0 {
		dir = protocol.West
	}
	return axisPulse{dir: dir, dur: time.Duration(ms) * time.Millisecond}
}

// elevationPulse converts a signed PID output to a pulse, suppressing
// downward motion when the mount is already near the horizon.
func elevationPulse(outputMs float64, altDeg, minSafeAltDeg float64, minPulseMs int) axisPulse {
	if outputMs < 0 && altDeg < minSafeAltDeg {
		return axisPulse{}
	}
	ms := int(math.Round(math.Abs(outputMs)))
	if ms < minPulseMs {
		return axisPulse{}
	}
	dir := protocol.North
	if outputMs < 0 {
		dir = protocol.South
	}
	return axisPulse{dir: dir, dur: time.Duration(ms) * time.Millisecond}
}

// coarsePulses plans the proportional-only GOTO move for both axes.
func coarsePulses(azErrDeg, elErrDeg, altDeg float64, cfg CoarseConfig, minSafeAltDeg float64) (az, el axisPulse) {
	azCap := cfg.CapMs
	if math.Abs(azErrDeg) > cfg.AzFastThresholdDeg {
		azCap = cfg.AzFastCapMs
	}
	azMs := math.Min(math.Abs(azErrDeg)*cfg.GainMsPerDeg, float64(azCap))
	if ms := int(math.Round(azMs)); ms > 0 {
		dir := protocol.East
		if azErrDeg < 0 {
			dir = protocol.West
		}
		az = axisPulse{dir: dir, dur: time.Duration(ms) * time.Millisecond}
	}

	if math.Abs(elErrDeg) < cfg.ElDeadbandDeg {
		return az, axisPulse{}
	}
	if elErrDeg < 0 && altDeg < minSafeAltDeg {
		return az, axisPulse{}
	}
	elMs := math.Min(math.Abs(elErrDeg)*cfg.GainMsPerDeg, float64(cfg.CapMs))
	if ms := int(math.Round(elMs)); ms > 0 {
		dir := protocol.North
		if elErrDeg < 0 {
			dir = protocol.South
		}
		el = axisPulse{dir: dir, dur: time.Duration(ms) * time.Millisecond}
	}
	return az, el
}

// applyPulses executes up to two pulses concurrently: start motion on every
// active axis, stop the shorter one when its duration elapses, then stop
// the longer. Stop failures are not retried; the caller's next tick
// corrects any residual drift.
func (t *Tracker) applyPulses(az, el axisPulse) error {
	switch {
	case az.active() && el.active():
		if err := t.mount.Move(az.dir); err != nil {
			return err
		}
		if err := t.mount.Move(el.dir); err != nil {
			t.stopQuiet(az.dir)
			return err
		}
		first, second := az, el
		if el.dur < az.dur {
			first, second = el, az
		}
		t.sleep(first.dur)
		t.stopQuiet(first.dir)
		t.sleep(second.dur - first.dur)
		t.stopQuiet(second.dir)
	case az.active():
		if err := t.mount.Move(az.dir); err != nil {
			return err
		}
		t.sleep(az.dur)
		t.stopQuiet(az.dir)
	case el.active():
		if err := t.mount.Move(el.dir); err != nil {
			return err
		}
		t.sleep(el.dur)
		t.stopQuiet(el.dir)
	}
	return nil
}

func (t *Tracker) stopQuiet(dir protocol.Direction) {
	if err := t.mount.StopMove(dir); err != nil {
		t.log.Printf("track: stop %c failed: %v", byte(dir), err)
	}
}
