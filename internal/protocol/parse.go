package protocol

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kwheeler87/satmount/internal/angle"
)

// ParseError reports a response that did not match any recognized format
// for the parser that received it. It carries the raw text (terminator
// stripped) for diagnostics.
type ParseError struct {
	Expected string
	Raw      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s", e.Raw, e.Expected)
}

// trimTerminator strips the trailing "#" frame terminator, if present, and
// surrounding whitespace.
func trimTerminator(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), "#")
}

var (
	raHMSRe = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2}(?:\.\d+)?)$`)
	raHMTRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})\.(\d)$`)
	decRe   = regexp.MustCompile(`^([+-]?)(\d{1,2})[*°](\d{2})(?::(\d{2}(?:\.\d+)?))?$`)
	azRe    = regexp.MustCompile(`^(\d{1,3})[*°](\d{2}):(\d{2}(?:\.\d+)?)$`)
)

// ParseRA parses a right ascension reply. Two formats occur on the wire:
// "HH:MM:SS" and the low-precision "HH:MM.T", where T is tenths of a minute
// (one tenth of a minute is six seconds).
func ParseRA(s string) (angle.Sexagesimal, error) {
	raw := trimTerminator(s)

	if m := raHMSRe.FindStringSubmatch(raw); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		sec, _ := strconv.ParseFloat(m[3], 64)
		if min > 59 || sec >= 60 {
			return angle.Sexagesimal{}, &ParseError{Expected: "right ascension", Raw: raw}
		}
		return angle.Sexagesimal{Whole: h, Minutes: min, Seconds: sec}, nil
	}

	if m := raHMTRe.FindStringSubmatch(raw); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		tenths, _ := strconv.Atoi(m[3])
		if min > 59 {
			return angle.Sexagesimal{}, &ParseError{Expected: "right ascension", Raw: raw}
		}
		return angle.Sexagesimal{Whole: h, Minutes: min, Seconds: float64(tenths) * 6}, nil
	}

	return angle.Sexagesimal{}, &ParseError{Expected: "right ascension", Raw: raw}
}

// ParseDec parses a declination or altitude reply: signed "DD*MM:SS" or
// "DD*MM". The degree/minute separator may be "*" or "°" depending on
// firmware.
func ParseDec(s string) (angle.Sexagesimal, error) {
	raw := trimTerminator(s)

	m := decRe.FindStringSubmatch(raw)
	if m == nil {
		return angle.Sexagesimal{}, &ParseError{Expected: "declination", Raw: raw}
	}

	deg, _ := strconv.Atoi(m[2])
	min, _ := strconv.Atoi(m[3])
	var sec float64
	if m[4] != "" {
		sec, _ = strconv.ParseFloat(m[4], 64)
	}
	if min > 59 || sec >= 60 {
		return angle.Sexagesimal{}, &ParseError{Expected: "declination", Raw: raw}
	}
	// The sign goes on every component: negating only the degrees loses it
	// entirely on replies like "-00*30:00".
	if m[1] == "-" {
		deg, min, sec = -deg, -min, -sec
	}
	return angle.Sexagesimal{Whole: deg, Minutes: min, Seconds: sec}, nil
}

// ParseAzimuth parses an azimuth reply, unsigned "DDD*MM:SS".
func ParseAzimuth(s string) (angle.Sexagesimal, error) {
	raw := trimTerminator(s)

	m := azRe.FindStringSubmatch(raw)
	if m == nil {
		return angle.Sexagesimal{}, &ParseError{Expected: "azimuth", Raw: raw}
	}

	deg, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.ParseFloat(m[3], 64)
	if deg > 359 || min > 59 || sec >= 60 {
		return angle.Sexagesimal{}, &ParseError{Expected: "azimuth", Raw: raw}
	}
	return angle.Sexagesimal{Whole: deg, Minutes: min, Seconds: sec}, nil
}

// ParseTrackingFlag parses the tracking status reply: "0" or "1".
func ParseTrackingFlag(s string) (bool, error) {
	switch trimTerminator(s) {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, &ParseError{Expected: "tracking flag", Raw: trimTerminator(s)}
}

// ParseAck parses a generic one-character acknowledgment: "1" means the
// command was accepted, "0" means it was refused.
func ParseAck(s string) (bool, error) {
	switch trimTerminator(s) {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}
	return false, &ParseError{Expected: "ack", Raw: trimTerminator(s)}
}

// GotoResult is the mount's verdict on a goto request.
type GotoResult int

const (
	GotoAccepted GotoResult = iota
	GotoBelowHorizon
	GotoBelowMinElevation
	GotoUnreachable
	GotoNotAligned
	GotoOutsideLimits
	GotoPierSideLimit
)

func (r GotoResult) String() string {
	switch r {
	case GotoAccepted:
		return "accepted"
	case GotoBelowHorizon:
		return "target below horizon"
	case GotoBelowMinElevation:
		return "target below minimum elevation"
	case GotoUnreachable:
		return "target unreachable"
	case GotoNotAligned:
		return "mount not aligned"
	case GotoOutsideLimits:
		return "target outside mechanical limits"
	case GotoPierSideLimit:
		return "pier-side limit"
	}
	return "unknown"
}

// ParseGotoResponse maps the goto reply code to a typed result. Only the
// literal codes 0, 1, 2, 4, 5, 6, 7, and e7 are recognized; anything else
// is an unknown-code error.
func ParseGotoResponse(s string) (GotoResult, error) {
	switch trimTerminator(s) {
	case "0":
		return GotoAccepted, nil
	case "1":
		return GotoBelowHorizon, nil
	case "2":
		return GotoBelowMinElevation, nil
	case "4":
		return GotoUnreachable, nil
	case "5":
		return GotoNotAligned, nil
	case "6":
		return GotoOutsideLimits, nil
	case "7", "e7":
		return GotoPierSideLimit, nil
	}
	return 0, &ParseError{Expected: "goto result code", Raw: trimTerminator(s)}
}

// MountMode is the mount's mechanical configuration.
type MountMode int

const (
	ModeUnknown MountMode = iota
	ModeEquatorial
	ModeAltAz
)

func (m MountMode) String() string {
	switch m {
	case ModeEquatorial:
		return "equatorial"
	case ModeAltAz:
		return "altaz"
	}
	return "unknown"
}

// Status is the decoded mount status flag string.
type Status struct {
	Tracking bool
	Slewing  bool
	AtHome   bool
	Mode     MountMode
}

// ParseStatus decodes the status flag string. The flags are negative
// indicators: a lowercase "n" means not tracking and "N" means not slewing,
// so their absence asserts the positive state. "H" marks the home position;
// "G" and "Z" identify equatorial and alt-az mounts respectively.
func ParseStatus(s string) (Status, error) {
	raw := trimTerminator(s)

	st := Status{
		Tracking: !strings.Contains(raw, "n"),
		Slewing:  !strings.Contains(raw, "N"),
		AtHome:   strings.Contains(raw, "H"),
		Mode:     ModeUnknown,
	}
	switch {
	case strings.Contains(raw, "G"):
		st.Mode = ModeEquatorial
	case strings.Contains(raw, "Z"):
		st.Mode = ModeAltAz
	}
	return st, nil
}
