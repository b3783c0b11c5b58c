package ctl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PassesOptions controls the passes command output.
type PassesOptions struct {
	NoradID int
	Count   int
	Hours   int
	JSON    bool
}

// Passes lists upcoming passes of a satellite over the configured station.
func Passes(baseURL string, opts PassesOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	params := url.Values{}
	if opts.NoradID > 0 {
		params.Set("norad", strconv.Itoa(opts.NoradID))
	}
	if opts.Count > 0 {
		params.Set("count", strconv.Itoa(opts.Count))
	}
	if opts.Hours > 0 {
		params.Set("hours", strconv.Itoa(opts.Hours))
	}
	path := "/api/passes"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp struct {
		NoradID int    `json:"norad_id"`
		Name    string `json:"name"`
		Passes  []struct {
			Rise        string  `json:"rise"`
			Set         string  `json:"set"`
			Peak        string  `json:"peak"`
			PeakElev    float64 `json:"peak_elev"`
			RiseAzimuth float64 `json:"rise_azimuth"`
			SetAzimuth  float64 `json:"set_azimuth"`
			DurationS   int     `json:"duration_s"`
		} `json:"passes"`
		Station struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
			Alt float64 `json:"alt"`
		} `json:"station"`
	}
	// The sweep may need a TLE network fetch plus a full SGP4 sampling pass,
	// so use the slow client.
	if err := getJSONSlow(baseURL, path, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	name := resp.Name
	if name == "" {
		name = fmt.Sprintf("NORAD %d", resp.NoradID)
	}

	fmt.Println()
	fmt.Println(header("  UPCOMING PASSES"))
	fmt.Printf("  %s %s\n", colorize(dim, "Satellite:"), colorize(bold, name))
	fmt.Printf("  %s %.4f, %.4f, %.0fm\n",
		colorize(dim, "Station:"),
		resp.Station.Lat, resp.Station.Lon, resp.Station.Alt,
	)
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 76)))

	if len(resp.Passes) == 0 {
		fmt.Println(colorize(dim, "  No upcoming passes found."))
		fmt.Println()
		return nil
	}

	fmt.Printf("  %-4s %-22s %-22s %6s %7s %7s  %s\n",
		colorize(dim, "#"),
		colorize(dim, "Rise"),
		colorize(dim, "Set"),
		colorize(dim, "Peak"),
		colorize(dim, "Rise az"),
		colorize(dim, "Set az"),
		colorize(dim, "Duration"),
	)
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 76)))

	for i, p := range resp.Passes {
		fmt.Printf("  %-4d %-22s %-22s %5.1f° %6.1f° %6.1f°  %s\n",
			i+1,
			formatPassTime(p.Rise),
			formatPassTime(p.Set),
			p.PeakElev,
			p.RiseAzimuth,
			p.SetAzimuth,
			formatDuration(time.Duration(p.DurationS)*time.Second),
		)
	}
	fmt.Println()

	return nil
}

// formatPassTime parses an RFC3339 timestamp and returns a local time string.
func formatPassTime(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04 MST")
}
