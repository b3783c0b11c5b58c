package ctl

import (
	"fmt"
	"strconv"
	"strings"
)

// TLE shows the cached two-line element set for a satellite.
func TLE(baseURL string, noradID int, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	path := "/api/tle"
	if noradID > 0 {
		path += "?norad=" + strconv.Itoa(noradID)
	}

	var resp struct {
		NoradID int    `json:"norad_id"`
		Name    string `json:"name"`
		Line1   string `json:"line1"`
		Line2   string `json:"line2"`
	}
	if err := getJSONSlow(baseURL, path, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  TLE"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 70)))
	fmt.Printf("  %-10s %s (NORAD %d)\n", colorize(dim, "Satellite:"), colorize(bold, resp.Name), resp.NoradID)
	fmt.Println()
	fmt.Println("  " + resp.Line1)
	fmt.Println("  " + resp.Line2)
	fmt.Println()

	return nil
}

// TLERefresh forces a fresh TLE download for a satellite.
func TLERefresh(baseURL string, noradID int, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	path := "/api/tle/refresh"
	if noradID > 0 {
		path += "?norad=" + strconv.Itoa(noradID)
	}

	var resp struct {
		OK      bool   `json:"ok"`
		NoradID int    `json:"norad_id"`
		Name    string `json:"name"`
	}
	if err := postJSONSlow(baseURL, path, nil, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	if resp.OK {
		fmt.Printf("  %s  %s (NORAD %d)\n", colorize(green, "REFRESHED"), resp.Name, resp.NoradID)
	} else {
		fmt.Printf("  %s  NORAD %d\n", colorize(red, "FAILED"), resp.NoradID)
	}
	fmt.Println()

	return nil
}
