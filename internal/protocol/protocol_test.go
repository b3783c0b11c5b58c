package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwheeler87/satmount/internal/angle"
)

func TestSetTargetRA(t *testing.T) {
	assert.Equal(t, ":Sr12:30:00#", SetTargetRA(12.5))
	assert.Equal(t, ":Sr00:00:00#", SetTargetRA(0))
	assert.Equal(t, ":Sr22:30:00#", SetTargetRA(-1.5)) // normalized
	assert.Equal(t, ":Sr00:00:00#", SetTargetRA(24))
	assert.Equal(t, ":Sr06:45:36#", SetTargetRA(6.76))
}

func TestSetTargetDec(t *testing.T) {
	assert.Equal(t, ":Sd-23*30:00#", SetTargetDec(-23.5))
	assert.Equal(t, ":Sd+00*30:00#", SetTargetDec(0.5))
	assert.Equal(t, ":Sd+90*00:00#", SetTargetDec(95)) // clamped
	assert.Equal(t, ":Sd-90*00:00#", SetTargetDec(-90))
	assert.Equal(t, ":Sd+45*15:54#", SetTargetDec(45.265))
}

func TestMoveCommands(t *testing.T) {
	for dir, want := range map[Direction]string{
		North: ":Mn#", South: ":Ms#", East: ":Me#", West: ":Mw#",
	} {
		got, err := Move(dir)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := Move(Direction('x'))
	assert.Error(t, err)

	got, err := StopMove(West)
	require.NoError(t, err)
	assert.Equal(t, ":Qw#", got)
}

func TestSetSlewRate(t *testing.T) {
	got, err := SetSlewRate(0)
	require.NoError(t, err)
	assert.Equal(t, ":R0#", got)

	got, err = SetSlewRate(9)
	require.NoError(t, err)
	assert.Equal(t, ":R9#", got)

	_, err = SetSlewRate(10)
	assert.Error(t, err)
	_, err = SetSlewRate(-1)
	assert.Error(t, err)
}

func TestGuidePulse(t *testing.T) {
	got, err := GuidePulse(East, 500)
	require.NoError(t, err)
	assert.Equal(t, ":Mge0500#", got)

	got, err = GuidePulse(North, 9999)
	require.NoError(t, err)
	assert.Equal(t, ":Mgn9999#", got)

	got, err = GuidePulse(South, 0)
	require.NoError(t, err)
	assert.Equal(t, ":Mgs0000#", got)

	_, err = GuidePulse(West, 10000)
	assert.Error(t, err)
	_, err = GuidePulse(West, -1)
	assert.Error(t, err)
}

func TestSetGuideRate(t *testing.T) {
	got, err := SetGuideRate(0.5)
	require.NoError(t, err)
	assert.Equal(t, ":Rg0.50#", got)

	_, err = SetGuideRate(0)
	assert.Error(t, err)
	_, err = SetGuideRate(1.1)
	assert.Error(t, err)
}

func TestSiteCommands(t *testing.T) {
	got, err := SetSiteLatitude(42.36)
	require.NoError(t, err)
	assert.Equal(t, ":St+42*21:36#", got)

	got, err = SetSiteLongitude(-71.06)
	require.NoError(t, err)
	assert.Equal(t, ":Sg-071*03:36#", got)

	_, err = SetSiteLatitude(91)
	assert.Error(t, err)
	_, err = SetSiteLongitude(200)
	assert.Error(t, err)
}

func TestParseRA(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want angle.Sexagesimal
	}{
		{"12:30:00#", angle.Sexagesimal{Whole: 12, Minutes: 30, Seconds: 0}},
		{"05:16:22#", angle.Sexagesimal{Whole: 5, Minutes: 16, Seconds: 22}},
		{"12:30.5#", angle.Sexagesimal{Whole: 12, Minutes: 30, Seconds: 30}}, // tenths of a minute × 6
		{"23:59.9#", angle.Sexagesimal{Whole: 23, Minutes: 59, Seconds: 54}},
		{"12:30:00", angle.Sexagesimal{Whole: 12, Minutes: 30, Seconds: 0}}, // terminator optional
	} {
		got, err := ParseRA(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}

	for _, bad := range []string{"", "#", "12:60:00#", "garbage#", "12-30-00#", "12:30:60#"} {
		_, err := ParseRA(bad)
		assert.Error(t, err, "input %q", bad)
		var pe *ParseError
		assert.ErrorAs(t, err, &pe, "input %q", bad)
	}
}

func TestParseDec(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want angle.Sexagesimal
	}{
		{"-23*30:00#", angle.Sexagesimal{Whole: -23, Minutes: -30, Seconds: 0}},
		{"+45*15:54#", angle.Sexagesimal{Whole: 45, Minutes: 15, Seconds: 54}},
		{"45*15:54#", angle.Sexagesimal{Whole: 45, Minutes: 15, Seconds: 54}}, // sign optional
		{"-05*30#", angle.Sexagesimal{Whole: -5, Minutes: -30, Seconds: 0}},   // short form
		{"+12°45:30#", angle.Sexagesimal{Whole: 12, Minutes: 45, Seconds: 30}},  // degree-sign separator
		{"-00*30:00#", angle.Sexagesimal{Whole: 0, Minutes: -30, Seconds: 0}},   // sign with zero degrees
	} {
		got, err := ParseDec(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}

	for _, bad := range []string{"", "+12:30:00#", "+12*61:00#", "nonsense#"} {
		_, err := ParseDec(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseAzimuth(t *testing.T) {
	got, err := ParseAzimuth("270*30:15#")
	require.NoError(t, err)
	assert.Equal(t, angle.Sexagesimal{Whole: 270, Minutes: 30, Seconds: 15}, got)

	got, err = ParseAzimuth("005*00:00#")
	require.NoError(t, err)
	assert.Equal(t, angle.Sexagesimal{Whole: 5, Minutes: 0, Seconds: 0}, got)

	for _, bad := range []string{"", "-10*00:00#", "400*00:00#", "270*30#"} {
		_, err := ParseAzimuth(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseGotoResponse(t *testing.T) {
	for in, want := range map[string]GotoResult{
		"0#":  GotoAccepted,
		"1#":  GotoBelowHorizon,
		"2#":  GotoBelowMinElevation,
		"4#":  GotoUnreachable,
		"5#":  GotoNotAligned,
		"6#":  GotoOutsideLimits,
		"7#":  GotoPierSideLimit,
		"e7#": GotoPierSideLimit,
	} {
		got, err := ParseGotoResponse(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	for _, bad := range []string{"3#", "8#", "e1#", "ok#", "#", ""} {
		_, err := ParseGotoResponse(bad)
		assert.Error(t, err, "input %q", bad)
		var pe *ParseError
		assert.ErrorAs(t, err, &pe, "input %q", bad)
	}
}

func TestParseAckAndTracking(t *testing.T) {
	ok, err := ParseAck("1#")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ParseAck("0#")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ParseAck("2#")
	assert.Error(t, err)

	on, err := ParseTrackingFlag("1#")
	require.NoError(t, err)
	assert.True(t, on)

	off, err := ParseTrackingFlag("0#")
	require.NoError(t, err)
	assert.False(t, off)

	_, err = ParseTrackingFlag("yes#")
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Status
	}{
		{"nNG#", Status{Tracking: false, Slewing: false, AtHome: false, Mode: ModeEquatorial}},
		{"G#", Status{Tracking: true, Slewing: true, Mode: ModeEquatorial}},
		{"NZ#", Status{Tracking: true, Slewing: false, Mode: ModeAltAz}},
		{"nNHZ#", Status{Tracking: false, Slewing: false, AtHome: true, Mode: ModeAltAz}},
		{"#", Status{Tracking: true, Slewing: true, Mode: ModeUnknown}},
	} {
		got, err := ParseStatus(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}
