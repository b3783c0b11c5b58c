package ctl

import (
	"fmt"
	"strings"
)

// Ports lists serial ports visible to the daemon.
func Ports(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		Ports []struct {
			Name string `json:"name"`
		} `json:"ports"`
	}
	if err := getJSON(baseURL, "/api/ports", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  SERIAL PORTS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	if len(resp.Ports) == 0 {
		fmt.Println(colorize(dim, "  none found"))
	}
	for _, p := range resp.Ports {
		fmt.Println("  " + p.Name)
	}
	fmt.Println()
	return nil
}
