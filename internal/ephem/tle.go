// Package ephem supplies the orbital side of satellite tracking: fetching
// and caching Two-Line Element sets, computing topocentric look angles from
// an observer, and predicting visible passes.
package ephem

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akhenakh/sgp4"
)

// TLE is one satellite's orbital element set, kept in raw two-line form so
// it can be handed to any propagator.
type TLE struct {
	Name    string
	Line1   string
	Line2   string
	NoradID int
}

// TLESource fetches the latest element set for a satellite. The network
// store below implements it; tests substitute fixtures.
type TLESource interface {
	FetchLatest(noradID int) (TLE, error)
}

// ParseTLE parses a two- or three-line element set. The lines are validated
// through the sgp4 package, which also yields the catalog number and, for
// three-line input, the satellite name.
func ParseTLE(raw string) (TLE, error) {
	lines := splitLines(raw)
	named := true
	switch len(lines) {
	case 2:
		lines = append([]string{"UNKNOWN"}, lines...)
		named = false
	case 3:
	default:
		return TLE{}, fmt.Errorf("TLE must be 2 or 3 lines, got %d", len(lines))
	}

	group := strings.TrimSpace(lines[0]) + "\n" + lines[1] + "\n" + lines[2]
	parsed, err := sgp4.ParseTLE(group)
	if err != nil {
		return TLE{}, fmt.Errorf("parse TLE: %w", err)
	}

	name := ""
	if named {
		name = parsed.Name
	}
	return TLE{
		Name:    name,
		Line1:   lines[1],
		Line2:   lines[2],
		NoradID: parsed.SatelliteNumber,
	}, nil
}

func splitLines(raw string) []string {
	var out []string
	for _, l := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if l = strings.TrimRight(l, " \t"); strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// DefaultTLEURL queries CelesTrak for a single catalog number.
const DefaultTLEURL = "https://celestrak.org/NORAD/elements/gp.php?CATNR=%d&FORMAT=tle"

// Store fetches TLEs from the network and caches them on disk, one file per
// catalog number. Lookup walks a tiered fallback: fresh disk cache, network
// fetch, then stale disk cache.
type Store struct {
	urlFormat string
	dataRoot  string
	maxAge    time.Duration

	client *http.Client
}

// NewStore returns a store that caches under dataRoot and treats cached
// sets older than refreshHours as stale.
func NewStore(urlFormat, dataRoot string, refreshHours int) *Store {
	if urlFormat == "" {
		urlFormat = DefaultTLEURL
	}
	return &Store{
		urlFormat: urlFormat,
		dataRoot:  dataRoot,
		maxAge:    time.Duration(refreshHours) * time.Hour,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchLatest returns the element set for one catalog number, preferring a
// fresh disk cache over the network.
func (s *Store) FetchLatest(noradID int) (TLE, error) {
	cachePath := s.cachePath(noradID)

	// Tier 1: fresh disk cache.
	if info, err := os.Stat(cachePath); err == nil && time.Since(info.ModTime()) < s.maxAge {
		if b, readErr := os.ReadFile(cachePath); readErr == nil && len(b) > 0 {
			if tle, parseErr := ParseTLE(string(b)); parseErr == nil {
				return tle, nil
			}
		}
	}

	// Tier 2: network.
	body, fetchErr := s.fetchFromNetwork(noradID)
	if fetchErr == nil {
		tle, err := ParseTLE(body)
		if err == nil && tle.NoradID == noradID {
			// Cache write failure is non-fatal; the data is in memory.
			_ = s.writeCache(cachePath, body)
			return tle, nil
		}
		if err == nil {
			fetchErr = fmt.Errorf("fetched TLE is for catalog %d, wanted %d", tle.NoradID, noradID)
		} else {
			fetchErr = err
		}
	}

	// Tier 3: stale disk cache.
	if b, readErr := os.ReadFile(cachePath); readErr == nil && len(b) > 0 {
		if tle, parseErr := ParseTLE(string(b)); parseErr == nil {
			return tle, nil
		}
	}

	return TLE{}, fmt.Errorf("no TLE for catalog %d: %w", noradID, fetchErr)
}

// Refresh fetches from the network unconditionally, bypassing the fresh
// cache tier.
func (s *Store) Refresh(noradID int) (TLE, error) {
	body, err := s.fetchFromNetwork(noradID)
	if err != nil {
		return TLE{}, err
	}
	tle, err := ParseTLE(body)
	if err != nil {
		return TLE{}, err
	}
	if tle.NoradID != noradID {
		return TLE{}, fmt.Errorf("fetched TLE is for catalog %d, wanted %d", tle.NoradID, noradID)
	}
	_ = s.writeCache(s.cachePath(noradID), body)
	return tle, nil
}

func (s *Store) cachePath(noradID int) string {
	return filepath.Join(s.dataRoot, fmt.Sprintf("tle_%d.txt", noradID))
}

func (s *Store) fetchFromNetwork(noradID int) (string, error) {
	resp, err := s.client.Get(fmt.Sprintf(s.urlFormat, noradID))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("TLE fetch returned HTTP %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// writeCache writes atomically via temp file and rename so readers never
// see a half-written element set.
func (s *Store) writeCache(cachePath, data string) error {
	dir := filepath.Dir(cachePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "tle-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), cachePath)
}
