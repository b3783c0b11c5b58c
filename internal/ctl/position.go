package ctl

import (
	"fmt"
	"strings"
)

// Position shows the mount's current pointing in both equatorial and
// horizontal coordinates.
func Position(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var eq struct {
		RAHours float64 `json:"ra_hours"`
		DecDeg  float64 `json:"dec_deg"`
		RA      string  `json:"ra"`
		Dec     string  `json:"dec"`
	}
	if err := getJSON(baseURL, "/api/position", &eq); err != nil {
		return err
	}

	var hz struct {
		AltitudeDeg float64 `json:"altitude_deg"`
		AzimuthDeg  float64 `json:"azimuth_deg"`
	}
	altazErr := getJSON(baseURL, "/api/altaz", &hz)

	if jsonOutput {
		resp := map[string]any{
			"ra_hours": eq.RAHours,
			"dec_deg":  eq.DecDeg,
			"ra":       eq.RA,
			"dec":      eq.Dec,
		}
		if altazErr == nil {
			resp["altitude_deg"] = hz.AltitudeDeg
			resp["azimuth_deg"] = hz.AzimuthDeg
		}
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  MOUNT POSITION"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-10s %s  (%.5fh)\n", colorize(dim, "RA:"), eq.RA, eq.RAHours)
	fmt.Printf("  %-10s %s  (%.4f°)\n", colorize(dim, "Dec:"), eq.Dec, eq.DecDeg)
	if altazErr == nil {
		fmt.Printf("  %-10s %.3f°\n", colorize(dim, "Azimuth:"), hz.AzimuthDeg)
		fmt.Printf("  %-10s %.3f°\n", colorize(dim, "Altitude:"), hz.AltitudeDeg)
	} else {
		fmt.Printf("  %-10s %s\n", colorize(dim, "Alt/Az:"), colorize(red, altazErr.Error()))
	}
	fmt.Println()

	return nil
}
