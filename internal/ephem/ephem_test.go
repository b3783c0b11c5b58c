package ephem

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const issTLE = `ISS (ZARYA)
1 25544U 98067A   25138.37048074  .00007749  00000+0  14567-3 0  9994
2 25544  51.6369  94.7823 0002558 120.7586  15.7840 15.49587957510533`

func TestParseTLEThreeLine(t *testing.T) {
	tle, err := ParseTLE(issTLE)
	require.NoError(t, err)
	assert.Equal(t, "ISS (ZARYA)", tle.Name)
	assert.Equal(t, 25544, tle.NoradID)
	assert.Contains(t, tle.Line1, "1 25544U")
	assert.Contains(t, tle.Line2, "2 25544")
}

func TestParseTLETwoLine(t *testing.T) {
	lines := splitLines(issTLE)
	require.Len(t, lines, 3)

	tle, err := ParseTLE(lines[1] + "\n" + lines[2])
	require.NoError(t, err)
	assert.Empty(t, tle.Name)
	assert.Equal(t, 25544, tle.NoradID)
}

func TestParseTLECRLF(t *testing.T) {
	lines := splitLines(issTLE)
	tle, err := ParseTLE(lines[0] + "\r\n" + lines[1] + "\r\n" + lines[2] + "\r\n")
	require.NoError(t, err)
	assert.Equal(t, 25544, tle.NoradID)
}

func TestParseTLERejectsBadInput(t *testing.T) {
	_, err := ParseTLE("just one line")
	assert.Error(t, err)

	_, err = ParseTLE("not a tle\nnot a tle either")
	assert.Error(t, err)
}

func TestStoreFetchesAndCaches(t *testing.T) {
	dir := t.TempDir()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(issTLE))
	}))
	defer srv.Close()

	store := NewStore(srv.URL+"/gp.php?CATNR=%d", dir, 2)

	tle, err := store.FetchLatest(25544)
	require.NoError(t, err)
	assert.Equal(t, 25544, tle.NoradID)
	assert.Equal(t, 1, hits)

	// Second lookup is served from the fresh disk cache.
	tle, err = store.FetchLatest(25544)
	require.NoError(t, err)
	assert.Equal(t, 25544, tle.NoradID)
	assert.Equal(t, 1, hits)

	_, err = os.Stat(filepath.Join(dir, "tle_25544.txt"))
	assert.NoError(t, err)
}

func TestStoreFallsBackToStaleCache(t *testing.T) {
	dir := t.TempDir()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	cachePath := filepath.Join(dir, "tle_25544.txt")
	require.NoError(t, os.WriteFile(cachePath, []byte(issTLE), 0o644))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(cachePath, old, old))

	store := NewStore(srv.URL+"/gp.php?CATNR=%d", dir, 2)
	tle, err := store.FetchLatest(25544)
	require.NoError(t, err)
	assert.Equal(t, 25544, tle.NoradID)
}

func TestStoreErrorsWithoutCacheOrNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	store := NewStore(srv.URL+"/gp.php?CATNR=%d", t.TempDir(), 2)
	_, err := store.FetchLatest(25544)
	assert.Error(t, err)
}

func TestStoreRejectsCatalogMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(issTLE))
	}))
	defer srv.Close()

	store := NewStore(srv.URL+"/gp.php?CATNR=%d", t.TempDir(), 2)
	_, err := store.FetchLatest(43013)
	assert.Error(t, err)
}

// syntheticSource drives the predictor with a scripted elevation profile.
type syntheticSource struct {
	elev func(t time.Time) float64
	az   func(t time.Time) float64
	err  error
}

func (s syntheticSource) PositionAt(tle TLE, obs Observer, t time.Time) (Topo, error) {
	if s.err != nil {
		return Topo{}, s.err
	}
	az := 180.0
	if s.az != nil {
		az = s.az(t)
	}
	return Topo{AzimuthDeg: az, ElevationDeg: s.elev(t), RangeKm: 1000}, nil
}

func TestPredictPassesSingleInterval(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Triangular profile peaking at 45 degrees, 20 minutes into the hour.
	// Above 10 degrees roughly between minutes 12.2 and 27.8.
	peak := start.Add(20 * time.Minute)
	src := syntheticSource{
		elev: func(tm time.Time) float64 {
			return 45.0 - tm.Sub(peak).Abs().Minutes()*4.5
		},
		az: func(tm time.Time) float64 {
			return 90.0 + tm.Sub(start).Minutes()*3
		},
	}

	passes, err := PredictPasses(src, TLE{}, Observer{}, start, PassOptions{
		HorizonHours: 1, StepSeconds: 30, MinElevationDeg: 10,
	})
	require.NoError(t, err)
	require.Len(t, passes, 1)

	p := passes[0]
	assert.True(t, p.Rise.After(start.Add(12*time.Minute)))
	assert.True(t, p.Set.Before(start.Add(28*time.Minute)))
	assert.True(t, p.Rise.Before(p.Set))
	assert.Equal(t, peak, p.Peak)
	assert.InDelta(t, 45.0, p.PeakElevation, 1e-9)
	assert.Equal(t, p.Set.Sub(p.Rise), p.Duration)
	assert.Less(t, p.RiseAzimuth, p.SetAzimuth)
}

func TestPredictPassesMultipleIntervals(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	src := syntheticSource{
		elev: func(tm time.Time) float64 {
			min := tm.Sub(start).Minutes()
			if (min >= 5 && min <= 10) || (min >= 40 && min <= 44) {
				return 30
			}
			return -5
		},
	}

	passes, err := PredictPasses(src, TLE{}, Observer{}, start, PassOptions{
		HorizonHours: 1, StepSeconds: 30, MinElevationDeg: 10,
	})
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.True(t, passes[0].Set.Before(passes[1].Rise))
}

func TestPredictPassesNoneVisible(t *testing.T) {
	src := syntheticSource{elev: func(time.Time) float64 { return -10 }}
	passes, err := PredictPasses(src, TLE{}, Observer{}, time.Now(), PassOptions{HorizonHours: 1})
	require.NoError(t, err)
	assert.Empty(t, passes)
}

func TestPredictPassesAllSamplesFailing(t *testing.T) {
	src := syntheticSource{err: assert.AnError}
	_, err := PredictPasses(src, TLE{}, Observer{}, time.Now(), PassOptions{HorizonHours: 1})
	assert.Error(t, err)
}

func TestNextPass(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	src := syntheticSource{
		elev: func(tm time.Time) float64 {
			min := tm.Sub(start).Minutes()
			if min >= 30 && min <= 35 {
				return 20
			}
			return 0
		},
	}

	p, ok, err := NextPass(src, TLE{}, Observer{}, start, PassOptions{HorizonHours: 1})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.Rise.After(start.Add(29*time.Minute)))

	none := syntheticSource{elev: func(time.Time) float64 { return -1 }}
	_, ok, err = NextPass(none, TLE{}, Observer{}, start, PassOptions{HorizonHours: 1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSGP4SourceRealTLE(t *testing.T) {
	tle, err := ParseTLE(issTLE)
	require.NoError(t, err)

	obs := Observer{LatDeg: 46.8299, LonDeg: -71.2540, AltM: 0}
	// Epoch of the fixture element set; propagation is exact there.
	at := time.Date(2025, 5, 18, 8, 53, 29, 0, time.UTC)

	topo, err := SGP4Source{}.PositionAt(tle, obs, at)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, topo.AzimuthDeg, 0.0)
	assert.Less(t, topo.AzimuthDeg, 360.0)
	assert.GreaterOrEqual(t, topo.ElevationDeg, -90.0)
	assert.LessOrEqual(t, topo.ElevationDeg, 90.0)
	assert.Greater(t, topo.RangeKm, 0.0)
}
