package mount

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kwheeler87/satmount/internal/angle"
	"github.com/kwheeler87/satmount/internal/protocol"
)

// DefaultReadTimeout bounds a single read on the serial link. Exchanges
// that legitimately return nothing (home, park, motion commands on some
// firmware) cost at most this long.
const DefaultReadTimeout = 250 * time.Millisecond

// Config describes how to reach the mount.
type Config struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration

	// Open defaults to OpenSerial; tests and the prober inject fakes.
	Open   Opener
	Logger *log.Logger
}

// Info identifies the connected mount.
type Info struct {
	Model    string
	Firmware string
}

// Session is the stateful connection to one mount. All exchanges are
// serialized under an internal mutex, so at most one command is ever
// outstanding on the half-duplex link. The slewing and tracking flags are
// advisory caches of the last commanded or queried state, not live hardware
// reads.
type Session struct {
	cfg  Config
	open Opener
	log  *log.Logger

	mu        sync.Mutex
	transport Transport
	slewing   bool
	tracking  bool
}

// NewSession creates a disconnected session. Call Connect before issuing
// commands.
func NewSession(cfg Config) *Session {
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	open := cfg.Open
	if open == nil {
		open = OpenSerial
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Session{cfg: cfg, open: open, log: logger}
}

// Connect opens the serial transport. On failure the session stays
// disconnected and the transport error is returned. Connecting an already
// connected session is a no-op.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport != nil {
		return nil
	}
	t, err := s.open(s.cfg.Port, s.cfg.Baud, s.cfg.ReadTimeout)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.cfg.Port, err)
	}
	s.transport = t
	s.log.Printf("mount: connected to %s @ %d baud", s.cfg.Port, s.cfg.Baud)
	return nil
}

// Disconnect stops all motion as a safety side effect, then closes the
// transport. It is idempotent and always attempts the close even when the
// hardware is unresponsive; the motion-stop error is swallowed.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil {
		return nil
	}
	if _, err := s.exchangeLocked(protocol.CmdStopAll, true); err != nil {
		s.log.Printf("mount: stop on disconnect failed: %v", err)
	}
	err := s.transport.Close()
	s.transport = nil
	s.slewing = false
	return err
}

// Connected reports whether the transport is open.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport != nil
}

// Flags returns the advisory slewing/tracking caches.
func (s *Session) Flags() (slewing, tracking bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slewing, s.tracking
}

// exchangeLocked writes one framed command and accumulates reply bytes
// until a "#" terminator or the read timeout. Partial replies are collected
// across multiple reads. When optional is true, a timeout with nothing
// accumulated counts as success with an empty reply; this is the documented
// exception for commands (home, park, raw motion) that never acknowledge.
// Callers must hold s.mu.
func (s *Session) exchangeLocked(cmd string, optional bool) (string, error) {
	if s.transport == nil {
		return "", ErrNotConnected
	}

	if _, err := s.transport.Write([]byte(cmd)); err != nil {
		return "", fmt.Errorf("write %q: %w", cmd, err)
	}

	var acc strings.Builder
	buf := make([]byte, 64)
	for {
		n, err := s.transport.Read(buf)
		if err != nil {
			return "", fmt.Errorf("read after %q: %w", cmd, err)
		}
		if n == 0 {
			// Read timeout expired.
			if acc.Len() == 0 {
				if optional {
					return "", nil
				}
				return "", fmt.Errorf("%q: %w", cmd, ErrReadTimeout)
			}
			return "", fmt.Errorf("%q: incomplete reply %q: %w", cmd, acc.String(), ErrReadTimeout)
		}
		acc.Write(buf[:n])
		if i := strings.IndexByte(acc.String(), '#'); i >= 0 {
			return acc.String()[:i+1], nil
		}
	}
}

// query runs a required-reply exchange.
func (s *Session) query(cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchangeLocked(cmd, false)
}

// command runs an exchange whose reply, if any, is discarded; a silent
// timeout is success.
func (s *Session) command(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.exchangeLocked(cmd, true)
	return err
}

// setter runs an exchange that must be acknowledged with "1".
func (s *Session) setter(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setterLocked(cmd)
}

func (s *Session) setterLocked(cmd string) error {
	raw, err := s.exchangeLocked(cmd, false)
	if err != nil {
		return err
	}
	ok, err := protocol.ParseAck(raw)
	if err != nil {
		return fmt.Errorf("%q: %w", cmd, err)
	}
	if !ok {
		return fmt.Errorf("%q: %w", cmd, ErrRejected)
	}
	return nil
}

// Position returns the current RA (decimal hours) and DEC (decimal
// degrees). Both queries must succeed or the whole call fails.
func (s *Session) Position() (raHours, decDeg float64, err error) {
	ra, dec, err := s.PositionSexagesimal()
	if err != nil {
		return 0, 0, err
	}
	return angle.FromSexagesimal(ra.Whole, ra.Minutes, ra.Seconds),
		angle.FromSexagesimal(dec.Whole, dec.Minutes, dec.Seconds), nil
}

// PositionSexagesimal returns the current RA and DEC in wire form.
func (s *Session) PositionSexagesimal() (ra, dec angle.Sexagesimal, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rawRA, err := s.exchangeLocked(protocol.CmdGetRA, false)
	if err != nil {
		return ra, dec, err
	}
	rawDec, err := s.exchangeLocked(protocol.CmdGetDec, false)
	if err != nil {
		return ra, dec, err
	}
	if ra, err = protocol.ParseRA(rawRA); err != nil {
		return ra, dec, err
	}
	if dec, err = protocol.ParseDec(rawDec); err != nil {
		return ra, dec, err
	}
	return ra, dec, nil
}

// AltAz returns the current altitude and azimuth in decimal degrees.
func (s *Session) AltAz() (altDeg, azDeg float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rawAlt, err := s.exchangeLocked(protocol.CmdGetAltitude, false)
	if err != nil {
		return 0, 0, err
	}
	rawAz, err := s.exchangeLocked(protocol.CmdGetAzimuth, false)
	if err != nil {
		return 0, 0, err
	}
	alt, err := protocol.ParseDec(rawAlt)
	if err != nil {
		return 0, 0, err
	}
	az, err := protocol.ParseAzimuth(rawAz)
	if err != nil {
		return 0, 0, err
	}
	return angle.FromSexagesimal(alt.Whole, alt.Minutes, alt.Seconds),
		angle.FromSexagesimal(az.Whole, az.Minutes, az.Seconds), nil
}

// Status queries the mount flag string and the tracking state and composes
// them. The advisory caches are refreshed only when both queries succeed.
func (s *Session) Status() (protocol.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rawStatus, err := s.exchangeLocked(protocol.CmdGetStatus, false)
	if err != nil {
		return protocol.Status{}, err
	}
	rawTracking, err := s.exchangeLocked(protocol.CmdGetTracking, false)
	if err != nil {
		return protocol.Status{}, err
	}
	st, err := protocol.ParseStatus(rawStatus)
	if err != nil {
		return protocol.Status{}, err
	}
	tracking, err := protocol.ParseTrackingFlag(rawTracking)
	if err != nil {
		return protocol.Status{}, err
	}
	// The dedicated tracking query is authoritative over the flag string.
	st.Tracking = tracking
	s.slewing = st.Slewing
	s.tracking = st.Tracking
	return st, nil
}

// MountInfo queries the model name and firmware version.
func (s *Session) MountInfo() (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	model, err := s.exchangeLocked(protocol.CmdGetModel, false)
	if err != nil {
		return Info{}, err
	}
	fw, err := s.exchangeLocked(protocol.CmdGetVersion, false)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Model:    strings.TrimSuffix(model, "#"),
		Firmware: strings.TrimSuffix(fw, "#"),
	}, nil
}

// Goto slews to the given equatorial target. RA is normalized into [0,24)
// and DEC clamped into [-90,90] by the command builders. The slewing cache
// flips true only when the mount accepts the request with code 0; any
// other code is reported in the result with a nil error.
func (s *Session) Goto(raHours, decDeg float64) (protocol.GotoResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setterLocked(protocol.SetTargetRA(raHours)); err != nil {
		return 0, fmt.Errorf("set target ra: %w", err)
	}
	if err := s.setterLocked(protocol.SetTargetDec(decDeg)); err != nil {
		return 0, fmt.Errorf("set target dec: %w", err)
	}
	raw, err := s.exchangeLocked(protocol.CmdGoto, false)
	if err != nil {
		return 0, err
	}
	result, err := protocol.ParseGotoResponse(raw)
	if err != nil {
		s.slewing = false
		return 0, err
	}
	s.slewing = result == protocol.GotoAccepted
	return result, nil
}

// Sync aligns the mount's idea of where it points with the given target.
// The mount replies with a free-text description, which is discarded.
func (s *Session) Sync(raHours, decDeg float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setterLocked(protocol.SetTargetRA(raHours)); err != nil {
		return fmt.Errorf("set target ra: %w", err)
	}
	if err := s.setterLocked(protocol.SetTargetDec(decDeg)); err != nil {
		return fmt.Errorf("set target dec: %w", err)
	}
	_, err := s.exchangeLocked(protocol.CmdSync, true)
	return err
}

// Move starts motion in one direction at the current slew rate.
func (s *Session) Move(dir protocol.Direction) error {
	cmd, err := protocol.Move(dir)
	if err != nil {
		return err
	}
	return s.command(cmd)
}

// StopMove stops motion in one direction.
func (s *Session) StopMove(dir protocol.Direction) error {
	cmd, err := protocol.StopMove(dir)
	if err != nil {
		return err
	}
	return s.command(cmd)
}

// StopAll halts all motion immediately and clears the slewing cache.
func (s *Session) StopAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.exchangeLocked(protocol.CmdStopAll, true); err != nil {
		return err
	}
	s.slewing = false
	return nil
}

// SetSlewRate selects a slew rate preset, 0 (slowest) to 9 (fastest).
func (s *Session) SetSlewRate(preset int) error {
	cmd, err := protocol.SetSlewRate(preset)
	if err != nil {
		return err
	}
	return s.command(cmd)
}

// SetTracking switches sidereal-style tracking on or off.
func (s *Session) SetTracking(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setterLocked(protocol.SetTracking(on)); err != nil {
		return err
	}
	s.tracking = on
	return nil
}

// Tracking queries the live tracking state and refreshes the cache.
func (s *Session) Tracking() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.exchangeLocked(protocol.CmdGetTracking, false)
	if err != nil {
		return false, err
	}
	on, err := protocol.ParseTrackingFlag(raw)
	if err != nil {
		return false, err
	}
	s.tracking = on
	return on, nil
}

// SetTrackingRate selects the sidereal, lunar, or solar tracking rate.
func (s *Session) SetTrackingRate(rate protocol.TrackRate) error {
	cmd, err := protocol.SetTrackingRate(rate)
	if err != nil {
		return err
	}
	return s.command(cmd)
}

// GuidePulse nudges one axis for the given duration in milliseconds
// (0-9999).
func (s *Session) GuidePulse(dir protocol.Direction, ms int) error {
	cmd, err := protocol.GuidePulse(dir, ms)
	if err != nil {
		return err
	}
	return s.command(cmd)
}

// SetGuideRate sets the guide rate as a fraction of sidereal, in (0,1.0].
func (s *Session) SetGuideRate(rate float64) error {
	cmd, err := protocol.SetGuideRate(rate)
	if err != nil {
		return err
	}
	return s.setter(cmd)
}

// Home sends the mount to its home position. The mount does not acknowledge
// this command; a silent timeout is success.
func (s *Session) Home() error {
	return s.command(protocol.CmdHome)
}

// Park moves to the park position and idles the motors. Unacknowledged,
// like Home.
func (s *Session) Park() error {
	return s.command(protocol.CmdPark)
}

// Unpark wakes the mount from the parked state. Unacknowledged.
func (s *Session) Unpark() error {
	return s.command(protocol.CmdUnpark)
}

// ClearAlignment deletes the mount's alignment model.
func (s *Session) ClearAlignment() error {
	return s.command(protocol.CmdClearAlignment)
}

// SetSite programs the observing site coordinates, latitude then longitude.
func (s *Session) SetSite(latDeg, lonDeg float64) error {
	latCmd, err := protocol.SetSiteLatitude(latDeg)
	if err != nil {
		return err
	}
	lonCmd, err := protocol.SetSiteLongitude(lonDeg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setterLocked(latCmd); err != nil {
		return fmt.Errorf("set latitude: %w", err)
	}
	if err := s.setterLocked(lonCmd); err != nil {
		return fmt.Errorf("set longitude: %w", err)
	}
	return nil
}

// SetBuzzer sets the buzzer volume, 0 (off) to 2 (loud).
func (s *Session) SetBuzzer(volume int) error {
	cmd, err := protocol.SetBuzzer(volume)
	if err != nil {
		return err
	}
	return s.setter(cmd)
}

// SetAltAzMode switches the mount into alt-az operation.
func (s *Session) SetAltAzMode() error {
	return s.command(protocol.CmdModeAltAz)
}

// SetEquatorialMode switches the mount into equatorial operation.
func (s *Session) SetEquatorialMode() error {
	return s.command(protocol.CmdModeEquatorial)
}

// SetMeridianFlip selects the meridian action: flip when enabled, stop at
// the meridian otherwise.
func (s *Session) SetMeridianFlip(enabled bool) error {
	return s.setter(protocol.SetMeridianFlip(enabled))
}

// SendRaw passes an already framed command straight through and returns the
// raw reply text with the terminator stripped. No validation is applied.
func (s *Session) SendRaw(cmd string) (string, error) {
	raw, err := s.query(cmd)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(raw, "#"), nil
}
