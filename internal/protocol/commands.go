// Package protocol builds and parses the mount's ASCII serial grammar.
// Commands are framed as ":" + mnemonic + fixed-width fields + "#"; responses
// are free text terminated by "#". The package is stateless: it never touches
// the wire, it only translates between typed values and framed strings.
//
// The command set is the ZWO AM5/AM3 dialect of the LX200 grammar.
package protocol

import (
	"fmt"
	"math"

	"github.com/kwheeler87/satmount/internal/angle"
)

// Parameterless commands. These are complete framed strings, built once.
const (
	CmdGetVersion       = ":GV#"
	CmdGetModel         = ":GVP#"
	CmdGetRA            = ":GR#"
	CmdGetDec           = ":GD#"
	CmdGetAltitude      = ":GA#"
	CmdGetAzimuth       = ":GZ#"
	CmdGetDate          = ":GC#"
	CmdGetLocalTime     = ":GL#"
	CmdGetTimezone      = ":GG#"
	CmdGetSiteLatitude  = ":Gt#"
	CmdGetSiteLongitude = ":Gg#"
	CmdGetGuideRate     = ":Ggr#"
	CmdGetTracking      = ":GAT#"
	CmdGetStatus        = ":GU#"
	CmdGoto             = ":MS#"
	CmdSync             = ":CM#"
	CmdStopAll          = ":Q#"
	CmdTrackingOn       = ":Te#"
	CmdTrackingOff      = ":Td#"
	CmdHome             = ":hC#"
	CmdPark             = ":hP#"
	CmdUnpark           = ":hR#"
	CmdClearAlignment   = ":NSC#"
	CmdModeAltAz        = ":AA#"
	CmdModeEquatorial   = ":AP#"
)

// Direction is a cardinal slew/guide direction as the mount understands it:
// east/west move azimuth (or RA), north/south move elevation (or DEC).
type Direction byte

const (
	North Direction = 'n'
	South Direction = 's'
	East  Direction = 'e'
	West  Direction = 'w'
)

func (d Direction) valid() bool {
	switch d {
	case North, South, East, West:
		return true
	}
	return false
}

func (d Direction) String() string { return string(byte(d)) }

// TrackRate selects which celestial rate the mount tracks at.
type TrackRate int

const (
	RateSidereal TrackRate = iota
	RateLunar
	RateSolar
)

// wholeSexagesimal splits a non-negative decimal angle into whole units,
// minutes, and whole seconds, rounding to the nearest second. Wire fields
// have no fractional seconds.
func wholeSexagesimal(abs float64) (whole, minutes, seconds int) {
	total := int(math.Round(abs * 3600))
	return total / 3600, (total / 60) % 60, total % 60
}

// SetTargetRA builds the target right-ascension command. The input is
// normalized into [0,24) before encoding, so any decimal hour value is
// accepted.
func SetTargetRA(hours float64) string {
	h, m, s := wholeSexagesimal(angle.NormalizeHours(hours))
	h %= 24 // 23:59:59.6 rounds up to 24:00:00
	return fmt.Sprintf(":Sr%02d:%02d:%02d#", h, m, s)
}

// SetTargetDec builds the target declination command. The input is clamped
// into [-90,90]; the sign is always emitted explicitly.
func SetTargetDec(deg float64) string {
	deg = angle.ClampDegrees(deg)
	sign := "+"
	if deg < 0 {
		sign = "-"
	}
	d, m, s := wholeSexagesimal(math.Abs(deg))
	return fmt.Sprintf(":Sd%s%02d*%02d:%02d#", sign, d, m, s)
}

// Move builds the start-moving command for one direction.
func Move(dir Direction) (string, error) {
	if !dir.valid() {
		return "", fmt.Errorf("invalid direction %q", byte(dir))
	}
	return fmt.Sprintf(":M%c#", byte(dir)), nil
}

// StopMove builds the stop-moving command for one direction.
func StopMove(dir Direction) (string, error) {
	if !dir.valid() {
		return "", fmt.Errorf("invalid direction %q", byte(dir))
	}
	return fmt.Sprintf(":Q%c#", byte(dir)), nil
}

// SetSlewRate builds the slew-rate preset command. Presets run 0 (slowest)
// through 9 (fastest).
func SetSlewRate(preset int) (string, error) {
	if preset < 0 || preset > 9 {
		return "", fmt.Errorf("slew rate preset %d out of range 0-9", preset)
	}
	return fmt.Sprintf(":R%d#", preset), nil
}

// GuidePulse builds a timed guide pulse in one direction. Duration is in
// milliseconds, 0-9999, encoded as a fixed four-digit field.
func GuidePulse(dir Direction, ms int) (string, error) {
	if !dir.valid() {
		return "", fmt.Errorf("invalid direction %q", byte(dir))
	}
	if ms < 0 || ms > 9999 {
		return "", fmt.Errorf("guide pulse %dms out of range 0-9999", ms)
	}
	return fmt.Sprintf(":Mg%c%04d#", byte(dir), ms), nil
}

// SetTracking builds the tracking enable/disable command.
func SetTracking(on bool) string {
	if on {
		return CmdTrackingOn
	}
	return CmdTrackingOff
}

// SetTrackingRate builds the tracking rate selection command.
func SetTrackingRate(rate TrackRate) (string, error) {
	switch rate {
	case RateSidereal:
		return ":TQ#", nil
	case RateLunar:
		return ":TL#", nil
	case RateSolar:
		return ":TS#", nil
	}
	return "", fmt.Errorf("unknown tracking rate %d", rate)
}

// SetGuideRate builds the guide rate command. The rate is a fraction of
// sidereal in (0,1.0], encoded with two decimals.
func SetGuideRate(rate float64) (string, error) {
	if rate <= 0 || rate > 1.0 {
		return "", fmt.Errorf("guide rate %.2f out of range (0,1.0]", rate)
	}
	return fmt.Sprintf(":Rg%.2f#", rate), nil
}

// SetBuzzer builds the buzzer volume command. Volume runs 0 (off) to 2 (loud).
func SetBuzzer(volume int) (string, error) {
	if volume < 0 || volume > 2 {
		return "", fmt.Errorf("buzzer volume %d out of range 0-2", volume)
	}
	return fmt.Sprintf(":SB%d#", volume), nil
}

// SetMeridianFlip builds the meridian action command: flip at the meridian
// when enabled, stop there otherwise.
func SetMeridianFlip(enabled bool) string {
	if enabled {
		return ":STa1#"
	}
	return ":STa0#"
}

// SetSiteLatitude builds the observing site latitude command.
func SetSiteLatitude(deg float64) (string, error) {
	if deg < -90 || deg > 90 {
		return "", fmt.Errorf("latitude %.4f out of range [-90,90]", deg)
	}
	sign := "+"
	if deg < 0 {
		sign = "-"
	}
	d, m, s := wholeSexagesimal(math.Abs(deg))
	return fmt.Sprintf(":St%s%02d*%02d:%02d#", sign, d, m, s), nil
}

// SetSiteLongitude builds the observing site longitude command. East is
// positive, west negative, per the mount's convention.
func SetSiteLongitude(deg float64) (string, error) {
	if deg < -180 || deg > 180 {
		return "", fmt.Errorf("longitude %.4f out of range [-180,180]", deg)
	}
	sign := "+"
	if deg < 0 {
		sign = "-"
	}
	d, m, s := wholeSexagesimal(math.Abs(deg))
	return fmt.Sprintf(":Sg%s%03d*%02d:%02d#", sign, d, m, s), nil
}

// SetTimezone builds the UTC offset command, hours east positive.
func SetTimezone(offsetHours float64) (string, error) {
	if offsetHours < -12 || offsetHours > 14 {
		return "", fmt.Errorf("timezone offset %.1f out of range [-12,14]", offsetHours)
	}
	sign := "+"
	abs := offsetHours
	if offsetHours < 0 {
		sign = "-"
		abs = -offsetHours
	}
	h := int(abs)
	m := int(math.Round((abs - float64(h)) * 60))
	return fmt.Sprintf(":SG%s%02d:%02d#", sign, h, m), nil
}

// SetDate builds the calendar date command (MM/DD/YY).
func SetDate(year, month, day int) (string, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", fmt.Errorf("invalid date %04d-%02d-%02d", year, month, day)
	}
	return fmt.Sprintf(":SC%02d/%02d/%02d#", month, day, year%100), nil
}

// SetLocalTime builds the local time command (HH:MM:SS, 24-hour).
func SetLocalTime(hour, minute, second int) (string, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return "", fmt.Errorf("invalid time %02d:%02d:%02d", hour, minute, second)
	}
	return fmt.Sprintf(":SL%02d:%02d:%02d#", hour, minute, second), nil
}
