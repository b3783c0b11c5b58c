// Package app wires together the HTTP server, WebSocket hub, the mount
// serial session, and the satellite tracker. It owns the daemon's lifecycle
// and is the single source of truth for what is currently connected and
// being tracked.
package app

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kwheeler87/satmount/internal/config"
	"github.com/kwheeler87/satmount/internal/ephem"
	"github.com/kwheeler87/satmount/internal/mount"
	"github.com/kwheeler87/satmount/internal/track"
	"github.com/kwheeler87/satmount/internal/ws"
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger *log.Logger
	Cfg    config.Config
	Bind   string

	// Enumerator lists serial ports for discovery endpoints. Optional;
	// without it auto-discovery is disabled.
	Enumerator mount.Enumerator
}

// App is the top-level daemon process.
type App struct {
	log    *log.Logger
	cfg    config.Config
	bind   string
	server *http.Server

	startedAt time.Time
	wsHub     *ws.Hub

	session *mount.Session
	store   *ephem.Store
	src     ephem.PositionSource
	enum    mount.Enumerator

	trackMu sync.Mutex
	tracker *track.Tracker
}

// New creates an App with a disconnected mount session. Call Run to start
// serving.
func New(opts Options) *App {
	cfg := opts.Cfg
	a := &App{
		log:       opts.Logger,
		cfg:       cfg,
		bind:      opts.Bind,
		startedAt: time.Now(),
		wsHub:     ws.NewHub(),
		store:     ephem.NewStore(cfg.Predict.TLEURL, cfg.Data.Root, cfg.Predict.TLERefreshHours),
		src:       ephem.SGP4Source{},
		enum:      opts.Enumerator,
	}
	a.session = mount.NewSession(mount.Config{
		Port:        cfg.Serial.Port,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: time.Duration(cfg.Serial.ReadTimeoutMs) * time.Millisecond,
		Logger:      opts.Logger,
	})
	return a
}

// Run starts the HTTP server, connects the mount, and blocks until the
// context is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	bind := a.bind
	if bind == "" && a.cfg.Server.Bind != "" {
		bind = a.cfg.Server.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	a.server = &http.Server{
		Addr:              bind,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.log.Printf("listening on http://%s", bind)

	a.connectMount()
	go a.heartbeatLoop(ctx)

	go func() {
		<-ctx.Done()
		a.log.Printf("shutdown requested")
		a.stopTracker()
		if err := a.session.Disconnect(); err != nil {
			a.log.Printf("disconnect: %v", err)
		}
		_ = a.server.Shutdown(context.Background())
		a.wsHub.Close()
	}()

	err = a.server.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/version", a.handleVersion)
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.HandleFunc("/api/ports", a.handlePorts)

	mux.HandleFunc("/api/position", a.handlePosition)
	mux.HandleFunc("/api/altaz", a.handleAltAz)
	mux.HandleFunc("/api/goto", a.handleGoto)
	mux.HandleFunc("/api/sync", a.handleSync)
	mux.HandleFunc("/api/move", a.handleMove)
	mux.HandleFunc("/api/stop", a.handleStop)
	mux.HandleFunc("/api/slewrate", a.handleSlewRate)
	mux.HandleFunc("/api/tracking", a.handleTracking)
	mux.HandleFunc("/api/guide", a.handleGuide)
	mux.HandleFunc("/api/home", a.handleHome)
	mux.HandleFunc("/api/park", a.handlePark)
	mux.HandleFunc("/api/unpark", a.handleUnpark)
	mux.HandleFunc("/api/site", a.handleSite)
	mux.HandleFunc("/api/raw", a.handleRaw)

	mux.HandleFunc("/api/track/start", a.handleTrackStart)
	mux.HandleFunc("/api/track/stop", a.handleTrackStop)
	mux.HandleFunc("/api/track/status", a.handleTrackStatus)
	mux.HandleFunc("/api/passes", a.handlePasses)
	mux.HandleFunc("/api/next-pass", a.handleNextPass)
	mux.HandleFunc("/api/tle", a.handleTLE)
	mux.HandleFunc("/api/tle/refresh", a.handleTLERefresh)

	mux.Handle("/ws", a.wsHub.Handler())
	return mux
}

// connectMount opens the configured serial port, falling back to
// auto-discovery when enabled. A mount that is absent at startup is not
// fatal; the daemon serves status and accepts a later restart.
func (a *App) connectMount() {
	err := a.session.Connect()
	if err == nil {
		a.log.Printf("mount connected on %s", a.cfg.Serial.Port)
		a.emit("mount", map[string]any{"type": "log", "level": "info",
			"message": "mount connected on " + a.cfg.Serial.Port})
		return
	}
	a.log.Printf("mount connect %s: %v", a.cfg.Serial.Port, err)

	if !a.cfg.Serial.AutoDiscover || a.enum == nil {
		return
	}

	timeout := time.Duration(a.cfg.Serial.ReadTimeoutMs) * time.Millisecond
	found, err := mount.Discover(a.enum, mount.OpenSerial, a.cfg.Serial.Baud, timeout, a.log)
	if err != nil || len(found) == 0 {
		a.log.Printf("mount discovery found nothing: %v", err)
		return
	}

	port := found[0].Port
	a.log.Printf("discovered %s on %s", found[0].Model, port)
	a.session = mount.NewSession(mount.Config{
		Port:        port,
		Baud:        a.cfg.Serial.Baud,
		ReadTimeout: timeout,
		Logger:      a.log,
	})
	if err := a.session.Connect(); err != nil {
		a.log.Printf("mount connect %s: %v", port, err)
	}
}

// observer builds the station location from config.
func (a *App) observer() ephem.Observer {
	return ephem.Observer{
		LatDeg: a.cfg.Station.Latitude,
		LonDeg: a.cfg.Station.Longitude,
		AltM:   a.cfg.Station.Altitude,
	}
}

// trackerConfig maps the TOML tuning onto the tracker's native config.
func (a *App) trackerConfig(noradID int) track.Config {
	tc := a.cfg.Tracker
	return track.Config{
		NoradID:            noradID,
		Observer:           a.observer(),
		MinElevationDeg:    a.cfg.Station.MinElevation,
		UpdateInterval:     time.Duration(tc.UpdateIntervalMs) * time.Millisecond,
		GotoTick:           time.Duration(tc.GotoTickMs) * time.Millisecond,
		GotoMaxIterations:  tc.GotoMaxIterations,
		GotoThresholdDeg:   tc.GotoThresholdDeg,
		MinSafeAltitudeDeg: tc.MinSafeAltDeg,
		PID: track.PIDConfig{
			Kp:               tc.PID.Kp,
			Ki:               tc.PID.Ki,
			Kd:               tc.PID.Kd,
			DeadbandDeg:      tc.PID.DeadbandDeg,
			IntegralClampDeg: tc.PID.IntegralClampDeg,
			OutputClampMs:    tc.PID.OutputClampMs,
			MinPulseMs:       tc.PID.MinPulseMs,
		},
		Coarse: track.CoarseConfig{
			GainMsPerDeg:       tc.Coarse.GainMsPerDeg,
			CapMs:              tc.Coarse.CapMs,
			AzFastCapMs:        tc.Coarse.AzFastCapMs,
			AzFastThresholdDeg: tc.Coarse.AzFastThresholdDeg,
			ElDeadbandDeg:      tc.Coarse.ElDeadbandDeg,
		},
	}
}

// currentTracker returns the active tracker, or nil.
func (a *App) currentTracker() *track.Tracker {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()
	return a.tracker
}

// stopTracker closes the active tracker, if any.
func (a *App) stopTracker() {
	a.trackMu.Lock()
	tr := a.tracker
	a.tracker = nil
	a.trackMu.Unlock()
	if tr != nil {
		if err := tr.Close(); err != nil {
			a.log.Printf("tracker close: %v", err)
		}
	}
}

// heartbeatLoop sends a periodic heartbeat event so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			mountState := "disconnected"
			if a.session.Connected() {
				mountState = "connected"
			}
			trackState := "idle"
			if tr := a.currentTracker(); tr != nil {
				trackState = tr.State().String()
			}
			a.emit("satmountd", map[string]any{
				"type":           "heartbeat",
				"mount":          mountState,
				"tracking":       trackState,
				"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
			})
		}
	}
}

// emit stamps a payload with a timestamp and component name, then pushes it
// to every connected WebSocket client.
func (a *App) emit(component string, payload map[string]any) {
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	payload["component"] = component
	a.wsHub.BroadcastJSON(payload)
}
