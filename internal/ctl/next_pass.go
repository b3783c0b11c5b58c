package ctl

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NextPassOptions configures the next-pass command.
type NextPassOptions struct {
	NoradID int
	JSON    bool
}

// NextPass shows the next upcoming pass of a satellite.
func NextPass(baseURL string, opts NextPassOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	path := "/api/next-pass"
	if opts.NoradID > 0 {
		path += "?norad=" + strconv.Itoa(opts.NoradID)
	}

	var resp struct {
		NoradID int `json:"norad_id"`
		Pass    *struct {
			Rise        string  `json:"rise"`
			Set         string  `json:"set"`
			Peak        string  `json:"peak"`
			PeakElev    float64 `json:"peak_elev"`
			RiseAzimuth float64 `json:"rise_azimuth"`
			SetAzimuth  float64 `json:"set_azimuth"`
			DurationS   int     `json:"duration_s"`
		} `json:"pass"`
		CountdownS int `json:"countdown_s"`
	}
	// Pass computation may need a TLE network fetch plus propagation,
	// so use the slow client.
	if err := getJSONSlow(baseURL, path, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  NEXT PASS"))
	fmt.Println("  " + strings.Repeat("─", 42))

	if resp.Pass == nil {
		fmt.Println("  No upcoming passes found.")
		fmt.Println()
		return nil
	}

	p := resp.Pass
	countdown := time.Duration(resp.CountdownS) * time.Second

	fmt.Printf("  Satellite:  NORAD %d\n", resp.NoradID)
	fmt.Printf("  Rise:       %s  az %.1f°\n", formatPassTime(p.Rise), p.RiseAzimuth)
	fmt.Printf("  Set:        %s  az %.1f°\n", formatPassTime(p.Set), p.SetAzimuth)
	fmt.Printf("  Peak:       %s  el %.1f°\n", formatPassTime(p.Peak), p.PeakElev)
	fmt.Printf("  Duration:   %s\n", formatDuration(time.Duration(p.DurationS)*time.Second))

	if countdown > 0 {
		fmt.Printf("  Countdown:  %s\n", formatDuration(countdown))
	} else {
		fmt.Printf("  Status:     %s\n", colorize(green, "NOW"))
	}

	fmt.Println()
	return nil
}
