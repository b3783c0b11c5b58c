package ephem

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Observer is a ground station location in geodetic coordinates.
type Observer struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

// Topo is a topocentric observation of a satellite from an observer.
type Topo struct {
	AzimuthDeg   float64
	ElevationDeg float64
	RangeKm      float64
}

// Visible reports whether the satellite is above the given elevation mask.
func (t Topo) Visible(minElevationDeg float64) bool {
	return t.ElevationDeg >= minElevationDeg
}

// PositionSource computes where a satellite appears in an observer's sky at
// a point in time. The SGP4 implementation below is the production source;
// tests substitute synthetic trajectories.
type PositionSource interface {
	PositionAt(tle TLE, obs Observer, t time.Time) (Topo, error)
}

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// SGP4Source propagates the element set with the SGP4 model and converts
// the ECI position to look angles.
type SGP4Source struct{}

func (SGP4Source) PositionAt(tle TLE, obs Observer, t time.Time) (Topo, error) {
	sat := satellite.TLEToSat(tle.Line1, tle.Line2, satellite.GravityWGS72)

	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	pos, _ := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		(pos.X == 0 && pos.Y == 0 && pos.Z == 0) {
		return Topo{}, fmt.Errorf("SGP4 propagation failed for catalog %d at %s", tle.NoradID, t.Format(time.RFC3339))
	}

	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	station := satellite.LatLong{
		Latitude:  obs.LatDeg * deg2rad,
		Longitude: obs.LonDeg * deg2rad,
	}
	la := satellite.ECIToLookAngles(pos, station, obs.AltM/1000.0, jd)

	az := math.Mod(la.Az*rad2deg, 360.0)
	if az < 0 {
		az += 360.0
	}
	return Topo{
		AzimuthDeg:   az,
		ElevationDeg: la.El * rad2deg,
		RangeKm:      la.Rg,
	}, nil
}
