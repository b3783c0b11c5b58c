package track

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/kwheeler87/satmount/internal/angle"
	"github.com/kwheeler87/satmount/internal/ephem"
	"github.com/kwheeler87/satmount/internal/protocol"
)

// State is the tracker's lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateSlewing
	StateTracking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSlewing:
		return "slewing"
	case StateTracking:
		return "tracking"
	}
	return "unknown"
}

// ErrClosed is returned from operations on a tracker after Close.
var ErrClosed = errors.New("track: tracker closed")

// Mount is the slice of the mount session the tracker drives.
type Mount interface {
	AltAz() (altDeg, azDeg float64, err error)
	Move(dir protocol.Direction) error
	StopMove(dir protocol.Direction) error
	StopAll() error
}

// Broadcaster receives tracker events for live observers. May be nil.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// CoarseConfig tunes the proportional-only GOTO convergence moves.
type CoarseConfig struct {
	GainMsPerDeg       float64 `toml:"gain_ms_per_deg"`
	CapMs              int     `toml:"cap_ms"`
	AzFastCapMs        int     `toml:"az_fast_cap_ms"`
	AzFastThresholdDeg float64 `toml:"az_fast_threshold_deg"`
	ElDeadbandDeg      float64 `toml:"el_deadband_deg"`
}

// DefaultCoarseConfig returns the stock convergence tuning.
func DefaultCoarseConfig() CoarseConfig {
	return CoarseConfig{
		GainMsPerDeg:       100,
		CapMs:              800,
		AzFastCapMs:        3000,
		AzFastThresholdDeg: 10,
		ElDeadbandDeg:      0.3,
	}
}

// Config carries all tracker tuning. Zero fields take the defaults.
type Config struct {
	NoradID  int
	Observer ephem.Observer

	MinElevationDeg    float64
	UpdateInterval     time.Duration
	GotoTick           time.Duration
	GotoMaxIterations  int
	GotoThresholdDeg   float64
	MinSafeAltitudeDeg float64

	PID    PIDConfig
	Coarse CoarseConfig
}

// DefaultConfig returns the stock tracker tuning for one satellite.
func DefaultConfig(noradID int, obs ephem.Observer) Config {
	return Config{
		NoradID:            noradID,
		Observer:           obs,
		MinElevationDeg:    10,
		UpdateInterval:     500 * time.Millisecond,
		GotoTick:           100 * time.Millisecond,
		GotoMaxIterations:  60,
		GotoThresholdDeg:   1.0,
		MinSafeAltitudeDeg: 5.0,
		PID:                DefaultPIDConfig(),
		Coarse:             DefaultCoarseConfig(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig(c.NoradID, c.Observer)
	if c.MinElevationDeg == 0 {
		c.MinElevationDeg = d.MinElevationDeg
	}
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = d.UpdateInterval
	}
	if c.GotoTick <= 0 {
		c.GotoTick = d.GotoTick
	}
	if c.GotoMaxIterations <= 0 {
		c.GotoMaxIterations = d.GotoMaxIterations
	}
	if c.GotoThresholdDeg <= 0 {
		c.GotoThresholdDeg = d.GotoThresholdDeg
	}
	if c.MinSafeAltitudeDeg == 0 {
		c.MinSafeAltitudeDeg = d.MinSafeAltitudeDeg
	}
	if c.PID == (PIDConfig{}) {
		c.PID = d.PID
	}
	if c.Coarse == (CoarseConfig{}) {
		c.Coarse = d.Coarse
	}
	return c
}

// Tracker follows one satellite with one mount. All mutable state lives on
// a single goroutine; public methods post requests onto its queue and wait.
type Tracker struct {
	cfg   Config
	mount Mount
	src   ephem.PositionSource
	tles  ephem.TLESource
	log   *log.Logger
	hub   Broadcaster

	sleep func(time.Duration)
	now   func() time.Time

	reqs     chan func()
	finished chan struct{}

	// Owned by the run goroutine.
	state          State
	tle            ephem.TLE
	azAxis, elAxis pidAxis
	haveGoto       bool
	gotoAz, gotoEl float64
	gotoIter       int
	timerSeq       uint64
	timer          *time.Timer
	lastTopo       ephem.Topo
	haveTopo       bool
	closing        bool
}

// New fetches the satellite's TLE and starts the tracker's actor loop.
// A TLE fetch failure is fatal: a tracker without an element set is useless.
func New(cfg Config, m Mount, src ephem.PositionSource, tles ephem.TLESource, logger *log.Logger, hub Broadcaster) (*Tracker, error) {
	t, err := newTracker(cfg, m, src, tles, logger, hub)
	if err != nil {
		return nil, err
	}
	t.start()
	return t, nil
}

// newTracker builds the tracker without launching its loop, so callers can
// still adjust the sleep/now seams before any other goroutine touches them.
func newTracker(cfg Config, m Mount, src ephem.PositionSource, tles ephem.TLESource, logger *log.Logger, hub Broadcaster) (*Tracker, error) {
	cfg = cfg.withDefaults()

	tle, err := tles.FetchLatest(cfg.NoradID)
	if err != nil {
		return nil, fmt.Errorf("fetch TLE for catalog %d: %w", cfg.NoradID, err)
	}

	return &Tracker{
		cfg:      cfg,
		mount:    m,
		src:      src,
		tles:     tles,
		log:      logger,
		hub:      hub,
		sleep:    time.Sleep,
		now:      time.Now,
		reqs:     make(chan func()),
		finished: make(chan struct{}),
		state:    StateIdle,
		tle:      tle,
		azAxis:   pidAxis{cfg: cfg.PID},
		elAxis:   pidAxis{cfg: cfg.PID},
	}, nil
}

func (t *Tracker) start() { go t.run() }

func (t *Tracker) run() {
	defer close(t.finished)
	for fn := range t.reqs {
		fn()
		if t.closing {
			return
		}
	}
}

// call posts fn onto the actor queue and waits for it to execute.
func (t *Tracker) call(fn func()) error {
	done := make(chan struct{})
	select {
	case t.reqs <- func() { defer close(done); fn() }:
	case <-t.finished:
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-t.finished:
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// enqueue posts fn without waiting; used by timer callbacks.
func (t *Tracker) enqueue(fn func()) {
	select {
	case t.reqs <- fn:
	case <-t.finished:
	}
}

// armTimer schedules a fire-once tick. The sequence number lets handlers
// discard ticks that were in flight when the timer was re-armed or
// cancelled.
func (t *Tracker) armTimer(d time.Duration, fire func(seq uint64)) {
	t.timerSeq++
	seq := t.timerSeq
	t.timer = time.AfterFunc(d, func() {
		t.enqueue(func() { fire(seq) })
	})
}

func (t *Tracker) cancelTimer() {
	t.timerSeq++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// StartTracking computes the satellite's current position and begins
// following it: a GOTO convergence phase if the target is up, otherwise
// straight to steady-state tracking, which waits for the target to rise.
func (t *Tracker) StartTracking() error {
	var err error
	if cerr := t.call(func() { err = t.handleStart() }); cerr != nil {
		return cerr
	}
	return err
}

func (t *Tracker) handleStart() error {
	if t.state != StateIdle {
		return fmt.Errorf("tracking already active (state %s)", t.state)
	}

	topo, err := t.src.PositionAt(t.tle, t.cfg.Observer, t.now())
	if err != nil {
		return fmt.Errorf("compute satellite position: %w", err)
	}
	t.lastTopo, t.haveTopo = topo, true

	t.azAxis.reset()
	t.elAxis.reset()

	if topo.Visible(t.cfg.MinElevationDeg) {
		t.state = StateSlewing
		t.haveGoto = true
		t.gotoAz = topo.AzimuthDeg
		t.gotoEl = topo.ElevationDeg
		t.gotoIter = 0
		t.armTimer(t.cfg.GotoTick, t.gotoStep)
	} else {
		t.state = StateTracking
		t.armTimer(t.cfg.UpdateInterval, t.updateStep)
	}
	t.broadcastState()
	return nil
}

// gotoStep runs one bounded convergence iteration toward the stored target.
func (t *Tracker) gotoStep(seq uint64) {
	if seq != t.timerSeq || t.state != StateSlewing || !t.haveGoto {
		return
	}

	alt, az, err := t.mount.AltAz()
	if err != nil {
		t.log.Printf("track: read mount position: %v", err)
		t.gotoIter++
		if t.gotoIter >= t.cfg.GotoMaxIterations {
			t.finishGoto()
			return
		}
		t.armTimer(t.cfg.GotoTick, t.gotoStep)
		return
	}

	if alt < 0 {
		t.hardAbort(alt)
		return
	}

	azErr := angle.WrapAzimuthError(t.gotoAz - az)
	elErr := t.gotoEl - alt

	if math.Abs(azErr) < t.cfg.GotoThresholdDeg && math.Abs(elErr) < t.cfg.GotoThresholdDeg {
		t.finishGoto()
		return
	}
	if t.gotoIter >= t.cfg.GotoMaxIterations {
		t.log.Printf("track: goto did not converge after %d iterations (az err %.2f, el err %.2f)",
			t.gotoIter, azErr, elErr)
		t.finishGoto()
		return
	}
	t.gotoIter++

	azP, elP := coarsePulses(azErr, elErr, alt, t.cfg.Coarse, t.cfg.MinSafeAltitudeDeg)
	t.broadcastPulse("goto", azP, elP)
	if err := t.applyPulses(azP, elP); err != nil {
		t.log.Printf("track: goto pulse failed: %v", err)
	}
	t.armTimer(t.cfg.GotoTick, t.gotoStep)
}

func (t *Tracker) finishGoto() {
	t.haveGoto = false
	t.state = StateTracking
	t.armTimer(t.cfg.UpdateInterval, t.updateStep)
	t.broadcastState()
}

// updateStep is the steady-state tick: safety gate, then PID correction if
// the target is up. The timer is re-armed on every path except a hard abort.
func (t *Tracker) updateStep(seq uint64) {
	if seq != t.timerSeq || t.state != StateTracking {
		return
	}

	topo, posErr := t.src.PositionAt(t.tle, t.cfg.Observer, t.now())
	if posErr == nil {
		t.lastTopo, t.haveTopo = topo, true
		t.broadcast(map[string]any{
			"type":          "position",
			"source":        "satellite",
			"azimuth_deg":   topo.AzimuthDeg,
			"elevation_deg": topo.ElevationDeg,
			"range_km":      topo.RangeKm,
		})
	}

	alt, az, err := t.mount.AltAz()
	if err != nil {
		t.log.Printf("track: read mount position: %v", err)
		t.armTimer(t.cfg.UpdateInterval, t.updateStep)
		return
	}

	if alt < 0 {
		t.hardAbort(alt)
		return
	}

	if posErr != nil {
		t.log.Printf("track: satellite position: %v", posErr)
		t.armTimer(t.cfg.UpdateInterval, t.updateStep)
		return
	}

	if topo.Visible(t.cfg.MinElevationDeg) {
		now := t.now()
		azOut := t.azAxis.update(angle.WrapAzimuthError(topo.AzimuthDeg-az), now, t.cfg.UpdateInterval)
		elOut := t.elAxis.update(topo.ElevationDeg-alt, now, t.cfg.UpdateInterval)

		azP := azimuthPulse(azOut, t.cfg.PID.MinPulseMs)
		elP := elevationPulse(elOut, alt, t.cfg.MinSafeAltitudeDeg, t.cfg.PID.MinPulseMs)
		if azP.active() || elP.active() {
			t.broadcastPulse("pid", azP, elP)
			if err := t.applyPulses(azP, elP); err != nil {
				t.log.Printf("track: correction pulse failed: %v", err)
			}
		}
	}

	t.armTimer(t.cfg.UpdateInterval, t.updateStep)
}

// hardAbort stops all motion and drops to idle. Not retried and not
// reported as a recoverable error.
func (t *Tracker) hardAbort(altDeg float64) {
	t.log.Printf("track: mount altitude %.2f below horizon, hard abort", altDeg)
	t.cancelTimer()
	if err := t.mount.StopAll(); err != nil {
		t.log.Printf("track: stop on abort failed: %v", err)
	}
	t.azAxis.reset()
	t.elAxis.reset()
	t.haveGoto = false
	t.state = StateIdle
	t.broadcast(map[string]any{"type": "abort", "reason": "below_horizon", "altitude": altDeg})
	t.broadcastState()
}

// StopTracking cancels any pending tick, stops the mount, and resets all
// controller state. The stop error is returned but the transition to idle
// happens regardless.
func (t *Tracker) StopTracking() error {
	var err error
	if cerr := t.call(func() { err = t.handleStop() }); cerr != nil {
		return cerr
	}
	return err
}

func (t *Tracker) handleStop() error {
	t.cancelTimer()
	err := t.mount.StopAll()
	t.azAxis.reset()
	t.elAxis.reset()
	t.haveGoto = false
	if t.state != StateIdle {
		t.state = StateIdle
		t.broadcastState()
	}
	return err
}

// Close shuts the tracker down, attempting a hardware stop first. A stop
// failure is logged, never returned. Safe to call more than once.
func (t *Tracker) Close() error {
	err := t.call(func() {
		t.cancelTimer()
		if err := t.mount.StopAll(); err != nil {
			t.log.Printf("track: stop on close failed: %v", err)
		}
		t.state = StateIdle
		t.closing = true
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// State reports the current lifecycle phase.
func (t *Tracker) State() State {
	var s State
	if err := t.call(func() { s = t.state }); err != nil {
		return StateIdle
	}
	return s
}

// TLE returns the element set the tracker is currently using.
func (t *Tracker) TLE() ephem.TLE {
	var tle ephem.TLE
	_ = t.call(func() { tle = t.tle })
	return tle
}

// RefreshTLE refetches the element set. On failure the old set is kept.
func (t *Tracker) RefreshTLE() (ephem.TLE, error) {
	tle, err := t.tles.FetchLatest(t.cfg.NoradID)
	if err != nil {
		return t.TLE(), fmt.Errorf("refresh TLE for catalog %d: %w", t.cfg.NoradID, err)
	}
	if cerr := t.call(func() { t.tle = tle }); cerr != nil {
		return ephem.TLE{}, cerr
	}
	return tle, nil
}

// Position computes where the satellite is right now and refreshes the
// last-observed cache.
func (t *Tracker) Position() (ephem.Topo, error) {
	topo, err := t.PositionAt(t.now())
	if err != nil {
		return ephem.Topo{}, err
	}
	_ = t.call(func() {
		t.lastTopo, t.haveTopo = topo, true
	})
	return topo, nil
}

// PositionAt computes the satellite's look angles at an arbitrary time.
func (t *Tracker) PositionAt(at time.Time) (ephem.Topo, error) {
	var tle ephem.TLE
	if err := t.call(func() { tle = t.tle }); err != nil {
		return ephem.Topo{}, err
	}
	return t.src.PositionAt(tle, t.cfg.Observer, at)
}

// LastObserved returns the most recently computed satellite position, if any.
func (t *Tracker) LastObserved() (ephem.Topo, bool) {
	var (
		topo ephem.Topo
		ok   bool
	)
	_ = t.call(func() { topo, ok = t.lastTopo, t.haveTopo })
	return topo, ok
}

// Visible reports whether the satellite is above the elevation mask now.
func (t *Tracker) Visible() (bool, error) {
	topo, err := t.Position()
	if err != nil {
		return false, err
	}
	return topo.Visible(t.cfg.MinElevationDeg), nil
}

// NextPass predicts the next pass within a 24 hour window.
func (t *Tracker) NextPass() (ephem.Pass, bool, error) {
	var tle ephem.TLE
	if err := t.call(func() { tle = t.tle }); err != nil {
		return ephem.Pass{}, false, err
	}
	return ephem.NextPass(t.src, tle, t.cfg.Observer, t.now(), ephem.PassOptions{
		HorizonHours:    24,
		MinElevationDeg: t.cfg.MinElevationDeg,
	})
}

// Passes predicts all passes within the window described by opts.
func (t *Tracker) Passes(opts ephem.PassOptions) ([]ephem.Pass, error) {
	var tle ephem.TLE
	if err := t.call(func() { tle = t.tle }); err != nil {
		return nil, err
	}
	if opts.MinElevationDeg == 0 {
		opts.MinElevationDeg = t.cfg.MinElevationDeg
	}
	return ephem.PredictPasses(t.src, tle, t.cfg.Observer, t.now(), opts)
}

func (t *Tracker) broadcastState() {
	t.broadcast(map[string]any{"type": "state", "state": t.state.String(), "norad_id": t.cfg.NoradID})
}

func (t *Tracker) broadcastPulse(phase string, az, el axisPulse) {
	v := map[string]any{"type": "pulse", "phase": phase}
	if az.active() {
		v["az_dir"] = string(rune(az.dir))
		v["az_ms"] = az.dur.Milliseconds()
	}
	if el.active() {
		v["el_dir"] = string(rune(el.dir))
		v["el_ms"] = el.dur.Milliseconds()
	}
	t.broadcast(v)
}

func (t *Tracker) broadcast(v map[string]any) {
	if t.hub == nil {
		return
	}
	v["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	v["component"] = "track"
	t.hub.BroadcastJSON(v)
}
