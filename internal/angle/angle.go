// Package angle converts between decimal angles and the sexagesimal
// representations used on the mount's serial protocol. Right ascension is
// carried in decimal hours, everything else in decimal degrees.
package angle

import "math"

// Sexagesimal is a decomposed angle: whole units (hours or degrees),
// minutes, and seconds rounded to one decimal place. For negative degree
// values every component carries the sign, so -0°30' is {0, -30, 0}; putting
// the sign on the whole part alone cannot represent angles in (-1,0).
type Sexagesimal struct {
	Whole   int
	Minutes int
	Seconds float64
}

// ToSexagesimal decomposes a decimal angle. When hours is true the input is
// first normalized into [0,24); negative degree inputs come back with every
// component negated.
func ToSexagesimal(decimal float64, hours bool) Sexagesimal {
	if hours {
		decimal = NormalizeHours(decimal)
	}

	neg := decimal < 0
	abs := math.Abs(decimal)

	whole := int(abs)
	rem := (abs - float64(whole)) * 60
	minutes := int(rem)
	seconds := math.Round((rem-float64(minutes))*60*10) / 10

	// Rounding seconds to one decimal can push them to 60.0; carry upward
	// so the minutes field stays in 0-59.
	if seconds >= 60 {
		seconds -= 60
		minutes++
	}
	if minutes >= 60 {
		minutes -= 60
		whole++
	}
	if hours && whole >= 24 {
		whole -= 24
	}

	if neg {
		whole, minutes, seconds = -whole, -minutes, -seconds
	}
	return Sexagesimal{Whole: whole, Minutes: minutes, Seconds: seconds}
}

// FromSexagesimal recomposes a decimal angle. Components of a negative angle
// are all negative, so a plain sum preserves the sign.
func FromSexagesimal(whole, minutes int, seconds float64) float64 {
	return float64(whole) + float64(minutes)/60 + seconds/3600
}

// NormalizeHours maps x into [0,24).
func NormalizeHours(x float64) float64 {
	x = math.Mod(x, 24)
	if x < 0 {
		x += 24
	}
	return x
}

// NormalizeDegrees maps x into [0,360).
func NormalizeDegrees(x float64) float64 {
	x = math.Mod(x, 360)
	if x < 0 {
		x += 360
	}
	return x
}

// ClampDegrees clamps x into [-90,90].
func ClampDegrees(x float64) float64 {
	if x > 90 {
		return 90
	}
	if x < -90 {
		return -90
	}
	return x
}

// WrapAzimuthError wraps a target−measured azimuth difference into
// (-180,180] so corrections always take the shorter path around the circle.
func WrapAzimuthError(deltaDeg float64) float64 {
	d := math.Mod(deltaDeg, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}
