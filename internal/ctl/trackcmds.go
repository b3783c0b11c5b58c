package ctl

import (
	"fmt"
	"strings"
)

// TrackStart begins closed-loop tracking of a satellite.
func TrackStart(baseURL string, noradID int, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		OK      bool   `json:"ok"`
		NoradID int    `json:"norad_id"`
		State   string `json:"state"`
	}
	// Startup fetches a TLE and may hit the network.
	if err := postJSONSlow(baseURL, "/api/track/start", map[string]any{"norad_id": noradID}, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Printf("  %s  tracking NORAD %d (%s)\n",
		colorize(green, "STARTED"),
		resp.NoradID,
		colorize(stateColor(resp.State), resp.State),
	)
	fmt.Println()
	return nil
}

// TrackStop halts closed-loop tracking and stops all mount motion.
func TrackStop(baseURL string, jsonOutput bool) error {
	return simplePost(baseURL, "/api/track/stop", "tracking stopped", nil, jsonOutput)
}

// TrackStatus shows the tracker's state and last observed satellite position.
func TrackStatus(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		State     string `json:"state"`
		NoradID   int    `json:"norad_id"`
		Name      string `json:"name"`
		Satellite *struct {
			AzimuthDeg   float64 `json:"azimuth_deg"`
			ElevationDeg float64 `json:"elevation_deg"`
			RangeKm      float64 `json:"range_km"`
		} `json:"satellite"`
	}
	if err := getJSON(baseURL, "/api/track/status", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  TRACKER"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-12s %s\n", colorize(dim, "State:"), colorize(stateColor(resp.State), resp.State))
	if resp.NoradID > 0 {
		name := resp.Name
		if name == "" {
			name = "unknown"
		}
		fmt.Printf("  %-12s %s (NORAD %d)\n", colorize(dim, "Satellite:"), name, resp.NoradID)
	}
	if sat := resp.Satellite; sat != nil {
		fmt.Printf("  %-12s %.2f°\n", colorize(dim, "Azimuth:"), sat.AzimuthDeg)
		fmt.Printf("  %-12s %.2f°\n", colorize(dim, "Elevation:"), sat.ElevationDeg)
		fmt.Printf("  %-12s %.0f km\n", colorize(dim, "Range:"), sat.RangeKm)
	}
	fmt.Println()
	return nil
}
