// Satmountd is the daemon half of satmount: it owns the serial connection
// to the telescope mount, exposes the mount and satellite-tracking API over
// HTTP/WebSocket, and runs the closed-loop tracking controller. Shutdown is
// handled gracefully on SIGINT or SIGTERM, including a hardware stop.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kwheeler87/satmount/internal/app"
	"github.com/kwheeler87/satmount/internal/config"
	"github.com/kwheeler87/satmount/internal/mount"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "/etc/satmount/satmount.toml", "Path to config TOML")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides config)")
		port       = pflag.StringP("port", "p", "", "Serial port (overrides config)")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}

	logger := log.New(os.Stdout, "satmountd ", log.LstdFlags|log.Lmicroseconds)

	a := app.New(app.Options{
		Logger:     logger,
		Cfg:        cfg,
		Bind:       *bind,
		Enumerator: enumerateDevPorts,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Fatalf("satmountd failed: %v", err)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}

// enumerateDevPorts lists serial-capable device nodes. Vendor metadata is
// not read here; the name-based filter in the mount package is enough for
// USB-serial adapters on Linux and macOS.
func enumerateDevPorts() ([]mount.PortInfo, error) {
	var ports []mount.PortInfo
	for _, pattern := range []string{
		"/dev/ttyUSB*",
		"/dev/ttyACM*",
		"/dev/cu.usbserial*",
		"/dev/cu.usbmodem*",
	} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			ports = append(ports, mount.PortInfo{Name: m})
		}
	}
	return ports, nil
}
