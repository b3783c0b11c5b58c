package ctl

import (
	"fmt"
	"strings"
)

// okResponse is the daemon's generic acknowledgement payload.
type okResponse struct {
	OK bool `json:"ok"`
}

// simplePost issues a POST with an optional body and prints an ok/failed line.
func simplePost(baseURL, path, label string, body any, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp okResponse
	if err := postJSON(baseURL, path, body, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Printf("  %s  %s\n", okLabel(resp.OK), label)
	fmt.Println()
	return nil
}

// Goto slews the mount to equatorial coordinates.
func Goto(baseURL string, raHours, decDeg float64, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	body := map[string]any{"ra_hours": raHours, "dec_deg": decDeg}
	var resp struct {
		OK     bool   `json:"ok"`
		Result string `json:"result"`
	}
	if err := postJSON(baseURL, "/api/goto", body, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	if resp.OK {
		fmt.Printf("  %s  slewing to RA %.4fh, Dec %.4f°\n", colorize(green, "ACCEPTED"), raHours, decDeg)
	} else {
		fmt.Printf("  %s  %s\n", colorize(red, "REJECTED"), resp.Result)
	}
	fmt.Println()
	return nil
}

// Sync tells the mount its current pointing matches the given coordinates.
func Sync(baseURL string, raHours, decDeg float64, jsonOutput bool) error {
	body := map[string]any{"ra_hours": raHours, "dec_deg": decDeg}
	label := fmt.Sprintf("synced to RA %.4fh, Dec %.4f°", raHours, decDeg)
	return simplePost(baseURL, "/api/sync", label, body, jsonOutput)
}

// Move starts a slew in a cardinal direction.
func Move(baseURL, direction string, jsonOutput bool) error {
	body := map[string]any{"direction": direction}
	return simplePost(baseURL, "/api/move", "moving "+direction, body, jsonOutput)
}

// Stop halts motion in one direction, or all motion when direction is empty.
func Stop(baseURL, direction string, jsonOutput bool) error {
	label := "stopped all axes"
	if direction != "" && direction != "all" {
		label = "stopped " + direction
	}
	body := map[string]any{"direction": direction}
	return simplePost(baseURL, "/api/stop", label, body, jsonOutput)
}

// SlewRate sets the manual slew rate preset.
func SlewRate(baseURL string, rate int, jsonOutput bool) error {
	body := map[string]any{"rate": rate}
	return simplePost(baseURL, "/api/slewrate", fmt.Sprintf("slew rate %d", rate), body, jsonOutput)
}

// Tracking reads or sets the mount's sidereal tracking state. When set is
// false the current state is displayed.
func Tracking(baseURL string, set, enabled bool, rate string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	if !set {
		var resp struct {
			Tracking bool `json:"tracking"`
		}
		if err := getJSON(baseURL, "/api/tracking", &resp); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(resp)
		}
		fmt.Println()
		if resp.Tracking {
			fmt.Printf("  %s  mount tracking is on\n", colorize(green, "ON"))
		} else {
			fmt.Printf("  %s  mount tracking is off\n", colorize(dim, "OFF"))
		}
		fmt.Println()
		return nil
	}

	body := map[string]any{"enabled": enabled}
	if rate != "" {
		body["rate"] = rate
	}
	label := "tracking off"
	if enabled {
		label = "tracking on"
		if rate != "" {
			label += " (" + rate + ")"
		}
	}
	return simplePost(baseURL, "/api/tracking", label, body, jsonOutput)
}

// Guide issues a timed guide pulse.
func Guide(baseURL, direction string, ms int, jsonOutput bool) error {
	body := map[string]any{"direction": direction, "ms": ms}
	label := fmt.Sprintf("guide %s %dms", direction, ms)
	return simplePost(baseURL, "/api/guide", label, body, jsonOutput)
}

// Home sends the mount to its home position.
func Home(baseURL string, jsonOutput bool) error {
	return simplePost(baseURL, "/api/home", "homing", nil, jsonOutput)
}

// Park parks the mount.
func Park(baseURL string, jsonOutput bool) error {
	return simplePost(baseURL, "/api/park", "parking", nil, jsonOutput)
}

// Unpark releases the mount from its parked state.
func Unpark(baseURL string, jsonOutput bool) error {
	return simplePost(baseURL, "/api/unpark", "unparked", nil, jsonOutput)
}

// Site programs the observing site coordinates into the mount.
func Site(baseURL string, lat, lon float64, jsonOutput bool) error {
	body := map[string]any{"latitude": lat, "longitude": lon}
	label := fmt.Sprintf("site set to %.4f, %.4f", lat, lon)
	return simplePost(baseURL, "/api/site", label, body, jsonOutput)
}

// Raw sends a raw protocol command through the daemon and prints the reply.
func Raw(baseURL, command string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		OK    bool   `json:"ok"`
		Reply string `json:"reply"`
	}
	if err := postJSON(baseURL, "/api/raw", map[string]any{"command": command}, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Printf("  %-8s %s\n", colorize(dim, "sent:"), command)
	if resp.Reply == "" {
		fmt.Printf("  %-8s %s\n", colorize(dim, "reply:"), colorize(dim, "(none)"))
	} else {
		fmt.Printf("  %-8s %s\n", colorize(dim, "reply:"), resp.Reply)
	}
	fmt.Println()
	return nil
}
