package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kwheeler87/satmount/internal/ephem"
	"github.com/kwheeler87/satmount/internal/protocol"
	"github.com/kwheeler87/satmount/internal/track"
)

// ---------------------------------------------------------------------------
// Core handlers
// ---------------------------------------------------------------------------

func (a *App) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"name":           "satmount",
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"connected":      a.session.Connected(),
		"port":           a.cfg.Serial.Port,
		"tracking_state": "idle",
	}

	if tr := a.currentTracker(); tr != nil {
		resp["tracking_state"] = tr.State().String()
		resp["norad_id"] = tr.TLE().NoradID
	}

	if a.session.Connected() {
		if info, err := a.session.MountInfo(); err == nil {
			resp["model"] = info.Model
			resp["firmware"] = info.Firmware
		}
		if st, err := a.session.Status(); err == nil {
			resp["mount"] = map[string]any{
				"tracking": st.Tracking,
				"slewing":  st.Slewing,
				"at_home":  st.AtHome,
				"mode":     st.Mode.String(),
			}
		}
	}

	if du := diskUsage(a.cfg.Data.Root); du != nil {
		resp["disk"] = du
	}

	writeJSON(w, resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"version":    Version,
		"go_version": GoVersion,
		"built_at":   BuiltAt,
	})
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.cfg)
}

func (a *App) handlePorts(w http.ResponseWriter, _ *http.Request) {
	if a.enum == nil {
		jsonError(w, "port enumeration not available", http.StatusNotImplemented)
		return
	}
	ports, err := a.enum()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"ports": ports})
}

// ---------------------------------------------------------------------------
// Mount handlers
// ---------------------------------------------------------------------------

func (a *App) handlePosition(w http.ResponseWriter, _ *http.Request) {
	ra, dec, err := a.session.Position()
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	sra, sdec, err := a.session.PositionSexagesimal()
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	// Negative declinations carry the sign on every sexagesimal component;
	// fold it into a single leading sign for display.
	decSign := "+"
	if dec < 0 {
		decSign = "-"
		sdec.Whole, sdec.Minutes, sdec.Seconds = -sdec.Whole, -sdec.Minutes, -sdec.Seconds
	}
	writeJSON(w, map[string]any{
		"ra_hours": ra,
		"dec_deg":  dec,
		"ra":       fmt.Sprintf("%02d:%02d:%04.1f", sra.Whole, sra.Minutes, sra.Seconds),
		"dec":      fmt.Sprintf("%s%02d*%02d:%04.1f", decSign, sdec.Whole, sdec.Minutes, sdec.Seconds),
	})
}

func (a *App) handleAltAz(w http.ResponseWriter, _ *http.Request) {
	alt, az, err := a.session.AltAz()
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"altitude_deg": alt, "azimuth_deg": az})
}

func (a *App) handleGoto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RAHours float64 `json:"ra_hours"`
		DecDeg  float64 `json:"dec_deg"`
	}
	if !decodePost(w, r, &req) {
		return
	}

	result, err := a.session.Goto(req.RAHours, req.DecDeg)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	a.emit("mount", map[string]any{"type": "log", "level": "info",
		"message": fmt.Sprintf("goto %.4fh %.4f: %s", req.RAHours, req.DecDeg, result)})
	writeJSON(w, map[string]any{
		"ok":     result == protocol.GotoAccepted,
		"result": result.String(),
	})
}

func (a *App) handleSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RAHours float64 `json:"ra_hours"`
		DecDeg  float64 `json:"dec_deg"`
	}
	if !decodePost(w, r, &req) {
		return
	}
	if err := a.session.Sync(req.RAHours, req.DecDeg); err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}
	if !decodePost(w, r, &req) {
		return
	}
	dir, ok := parseDirection(req.Direction)
	if !ok {
		jsonError(w, "direction must be one of n/s/e/w", http.StatusBadRequest)
		return
	}
	if err := a.session.Move(dir); err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleStop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}
	if !decodePost(w, r, &req) {
		return
	}

	if req.Direction == "" || req.Direction == "all" {
		if err := a.session.StopAll(); err != nil {
			jsonError(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
		return
	}

	dir, ok := parseDirection(req.Direction)
	if !ok {
		jsonError(w, "direction must be one of n/s/e/w or all", http.StatusBadRequest)
		return
	}
	if err := a.session.StopMove(dir); err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleSlewRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rate int `json:"rate"`
	}
	if !decodePost(w, r, &req) {
		return
	}
	if err := a.session.SetSlewRate(req.Rate); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleTracking(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		on, err := a.session.Tracking()
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"tracking": on})
		return
	}

	var req struct {
		Enabled bool   `json:"enabled"`
		Rate    string `json:"rate"`
	}
	if !decodePost(w, r, &req) {
		return
	}

	if req.Rate != "" {
		rate, ok := parseTrackRate(req.Rate)
		if !ok {
			jsonError(w, "rate must be sidereal, lunar, or solar", http.StatusBadRequest)
			return
		}
		if err := a.session.SetTrackingRate(rate); err != nil {
			jsonError(w, err.Error(), http.StatusBadGateway)
			return
		}
	}
	if err := a.session.SetTracking(req.Enabled); err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleGuide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
		Ms        int    `json:"ms"`
	}
	if !decodePost(w, r, &req) {
		return
	}
	dir, ok := parseDirection(req.Direction)
	if !ok {
		jsonError(w, "direction must be one of n/s/e/w", http.StatusBadRequest)
		return
	}
	if err := a.session.GuidePulse(dir, req.Ms); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	a.simpleCommand(w, r, a.session.Home)
}

func (a *App) handlePark(w http.ResponseWriter, r *http.Request) {
	a.simpleCommand(w, r, a.session.Park)
}

func (a *App) handleUnpark(w http.ResponseWriter, r *http.Request) {
	a.simpleCommand(w, r, a.session.Unpark)
}

func (a *App) handleSite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if !decodePost(w, r, &req) {
		return
	}
	if err := a.session.SetSite(req.Latitude, req.Longitude); err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleRaw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command string `json:"command"`
	}
	if !decodePost(w, r, &req) {
		return
	}
	if req.Command == "" {
		jsonError(w, "command required", http.StatusBadRequest)
		return
	}
	reply, err := a.session.SendRaw(req.Command)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "reply": reply})
}

// ---------------------------------------------------------------------------
// Tracking handlers
// ---------------------------------------------------------------------------

func (a *App) handleTrackStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NoradID int `json:"norad_id"`
	}
	if !decodePost(w, r, &req) {
		return
	}
	if req.NoradID <= 0 {
		jsonError(w, "norad_id required", http.StatusBadRequest)
		return
	}
	if !a.session.Connected() {
		jsonError(w, "mount not connected", http.StatusConflict)
		return
	}

	a.trackMu.Lock()
	defer a.trackMu.Unlock()

	if a.tracker != nil {
		if a.tracker.State() != track.StateIdle {
			jsonError(w, "tracker busy", http.StatusConflict)
			return
		}
		_ = a.tracker.Close()
		a.tracker = nil
	}

	tr, err := track.New(a.trackerConfig(req.NoradID), a.session, a.src, a.store, a.log, a.wsHub)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	if err := tr.StartTracking(); err != nil {
		_ = tr.Close()
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	a.tracker = tr

	writeJSON(w, map[string]any{
		"ok":       true,
		"norad_id": req.NoradID,
		"state":    tr.State().String(),
	})
}

func (a *App) handleTrackStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tr := a.currentTracker()
	if tr == nil {
		jsonError(w, "no active tracker", http.StatusConflict)
		return
	}
	if err := tr.StopTracking(); err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) handleTrackStatus(w http.ResponseWriter, _ *http.Request) {
	tr := a.currentTracker()
	if tr == nil {
		writeJSON(w, map[string]any{"state": "idle"})
		return
	}

	resp := map[string]any{
		"state":    tr.State().String(),
		"norad_id": tr.TLE().NoradID,
		"name":     tr.TLE().Name,
	}
	if topo, ok := tr.LastObserved(); ok {
		resp["satellite"] = map[string]any{
			"azimuth_deg":   topo.AzimuthDeg,
			"elevation_deg": topo.ElevationDeg,
			"range_km":      topo.RangeKm,
		}
	}
	writeJSON(w, resp)
}

func (a *App) handlePasses(w http.ResponseWriter, r *http.Request) {
	noradID, ok := queryNorad(w, r, a.currentTracker())
	if !ok {
		return
	}

	tle, err := a.store.FetchLatest(noradID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	opts := ephem.PassOptions{
		HorizonHours:    a.cfg.Predict.LookaheadHours,
		StepSeconds:     a.cfg.Predict.StepSeconds,
		MinElevationDeg: a.cfg.Station.MinElevation,
	}
	if hrs := r.URL.Query().Get("hours"); hrs != "" {
		if n, err := strconv.Atoi(hrs); err == nil && n > 0 {
			opts.HorizonHours = n
		}
	}

	passes, err := ephem.PredictPasses(a.src, tle, a.observer(), time.Now().UTC(), opts)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if countStr := r.URL.Query().Get("count"); countStr != "" {
		if n, err := strconv.Atoi(countStr); err == nil && n > 0 && n < len(passes) {
			passes = passes[:n]
		}
	}

	writeJSON(w, map[string]any{
		"norad_id": noradID,
		"name":     tle.Name,
		"passes":   passesToJSON(passes),
		"station": map[string]any{
			"lat": a.cfg.Station.Latitude,
			"lon": a.cfg.Station.Longitude,
			"alt": a.cfg.Station.Altitude,
		},
	})
}

func (a *App) handleNextPass(w http.ResponseWriter, r *http.Request) {
	noradID, ok := queryNorad(w, r, a.currentTracker())
	if !ok {
		return
	}

	tle, err := a.store.FetchLatest(noradID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	pass, found, err := ephem.NextPass(a.src, tle, a.observer(), time.Now().UTC(), ephem.PassOptions{
		HorizonHours:    24,
		StepSeconds:     a.cfg.Predict.StepSeconds,
		MinElevationDeg: a.cfg.Station.MinElevation,
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]any{"norad_id": noradID, "pass": nil}
	if found {
		pj := passesToJSON([]ephem.Pass{pass})
		resp["pass"] = pj[0]
		resp["countdown_s"] = int(time.Until(pass.Rise).Seconds())
	}
	writeJSON(w, resp)
}

func (a *App) handleTLE(w http.ResponseWriter, r *http.Request) {
	noradID, ok := queryNorad(w, r, a.currentTracker())
	if !ok {
		return
	}
	tle, err := a.store.FetchLatest(noradID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{
		"norad_id": tle.NoradID,
		"name":     tle.Name,
		"line1":    tle.Line1,
		"line2":    tle.Line2,
	})
}

func (a *App) handleTLERefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	noradID, ok := queryNorad(w, r, a.currentTracker())
	if !ok {
		return
	}

	// Refresh through the tracker when it owns this satellite so its
	// in-memory element set stays current too.
	if tr := a.currentTracker(); tr != nil && tr.TLE().NoradID == noradID {
		tle, err := tr.RefreshTLE()
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "norad_id": tle.NoradID, "name": tle.Name})
		return
	}

	tle, err := a.store.Refresh(noradID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "norad_id": tle.NoradID, "name": tle.Name})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (a *App) simpleCommand(w http.ResponseWriter, r *http.Request, cmd func() error) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := cmd(); err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

// decodePost enforces POST and decodes the JSON body into v. Writes the
// error response itself and returns false when the request is unusable.
func decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// queryNorad resolves the target satellite for TLE and pass endpoints: the
// norad query parameter if present, else the active tracker's satellite.
func queryNorad(w http.ResponseWriter, r *http.Request, tr *track.Tracker) (int, bool) {
	if s := r.URL.Query().Get("norad"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			jsonError(w, "norad must be a positive integer", http.StatusBadRequest)
			return 0, false
		}
		return n, true
	}
	if tr != nil {
		return tr.TLE().NoradID, true
	}
	jsonError(w, "norad parameter required", http.StatusBadRequest)
	return 0, false
}

func parseDirection(s string) (protocol.Direction, bool) {
	switch strings.ToLower(s) {
	case "n", "north", "up":
		return protocol.North, true
	case "s", "south", "down":
		return protocol.South, true
	case "e", "east", "left":
		return protocol.East, true
	case "w", "west", "right":
		return protocol.West, true
	}
	return 0, false
}

func parseTrackRate(s string) (protocol.TrackRate, bool) {
	switch strings.ToLower(s) {
	case "sidereal":
		return protocol.RateSidereal, true
	case "lunar":
		return protocol.RateLunar, true
	case "solar":
		return protocol.RateSolar, true
	}
	return 0, false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":    false,
		"error": msg,
	})
}

type passJSON struct {
	Rise        string  `json:"rise"`
	Set         string  `json:"set"`
	Peak        string  `json:"peak"`
	PeakElev    float64 `json:"peak_elev"`
	RiseAzimuth float64 `json:"rise_azimuth"`
	SetAzimuth  float64 `json:"set_azimuth"`
	DurationS   int     `json:"duration_s"`
}

func passesToJSON(passes []ephem.Pass) []passJSON {
	result := make([]passJSON, len(passes))
	for i, p := range passes {
		result[i] = passJSON{
			Rise:        p.Rise.Format(time.RFC3339),
			Set:         p.Set.Format(time.RFC3339),
			Peak:        p.Peak.Format(time.RFC3339),
			PeakElev:    p.PeakElevation,
			RiseAzimuth: p.RiseAzimuth,
			SetAzimuth:  p.SetAzimuth,
			DurationS:   int(p.Duration.Seconds()),
		}
	}
	return result
}
