package ctl

import (
	"fmt"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string `json:"name"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Connected     bool   `json:"connected"`
	Port          string `json:"port"`
	TrackingState string `json:"tracking_state"`
	NoradID       int    `json:"norad_id"`
	Model         string `json:"model"`
	Firmware      string `json:"firmware"`
	Mount         *struct {
		Tracking bool   `json:"tracking"`
		Slewing  bool   `json:"slewing"`
		AtHome   bool   `json:"at_home"`
		Mode     string `json:"mode"`
	} `json:"mount"`
	Disk *struct {
		TotalBytes     int64 `json:"total_bytes"`
		AvailableBytes int64 `json:"available_bytes"`
	} `json:"disk"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(s)
	}

	conn := "disconnected"
	if s.Connected {
		conn = "connected"
	}
	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)

	fmt.Println()
	fmt.Println(header("  SATMOUNT STATUS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-12s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Printf("  %-12s %s %s\n", colorize(dim, "Mount:"),
		colorize(stateColor(conn), conn), colorize(dim, s.Port))
	if s.Model != "" {
		fw := s.Firmware
		if fw != "" {
			fw = " (" + fw + ")"
		}
		fmt.Printf("  %-12s %s%s\n", colorize(dim, "Model:"), s.Model, colorize(dim, fw))
	}
	if s.Mount != nil {
		flags := []string{}
		if s.Mount.Tracking {
			flags = append(flags, "tracking")
		}
		if s.Mount.Slewing {
			flags = append(flags, "slewing")
		}
		if s.Mount.AtHome {
			flags = append(flags, "home")
		}
		if len(flags) == 0 {
			flags = append(flags, "stopped")
		}
		fmt.Printf("  %-12s %s %s\n", colorize(dim, "Flags:"),
			strings.Join(flags, ", "), colorize(dim, s.Mount.Mode))
	}
	trackLine := colorize(stateColor(s.TrackingState), s.TrackingState)
	if s.NoradID != 0 {
		trackLine += colorize(dim, fmt.Sprintf("  NORAD %d", s.NoradID))
	}
	fmt.Printf("  %-12s %s\n", colorize(dim, "Tracker:"), trackLine)
	if s.Disk != nil {
		fmt.Printf("  %-12s %s free of %s\n", colorize(dim, "Disk:"),
			formatBytes(s.Disk.AvailableBytes), formatBytes(s.Disk.TotalBytes))
	}
	fmt.Printf("  %-12s %s\n", colorize(dim, "Host:"), strings.TrimRight(baseURL, "/"))
	fmt.Println()

	return nil
}
