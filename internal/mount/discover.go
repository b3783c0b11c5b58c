package mount

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// PortInfo is one entry from the platform's serial port listing. The
// listing itself comes from an external Enumerator; this package only
// filters and probes.
type PortInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	VendorID    string `json:"vendor_id,omitempty"`
	ProductID   string `json:"product_id,omitempty"`
}

// Enumerator lists candidate serial ports. Platform-specific enumeration
// lives outside this package.
type Enumerator func() ([]PortInfo, error)

// usbVendors are USB-serial bridge chips seen on AM-series mounts.
var usbVendors = map[string]bool{
	"10c4": true, // Silicon Labs CP210x
	"1a86": true, // WCH CH340
	"0403": true, // FTDI
}

// LikelyMountPorts filters a port listing down to entries that look like
// USB-serial adapters, either by device name or by USB vendor ID.
func LikelyMountPorts(ports []PortInfo) []PortInfo {
	var out []PortInfo
	for _, p := range ports {
		name := strings.ToLower(p.Name)
		switch {
		case strings.Contains(name, "ttyusb"),
			strings.Contains(name, "ttyacm"),
			strings.Contains(name, "cu.usbserial"),
			strings.Contains(name, "cu.usbmodem"),
			strings.HasPrefix(strings.ToUpper(p.Name), "COM"):
			out = append(out, p)
		case usbVendors[strings.ToLower(p.VendorID)]:
			out = append(out, p)
		}
	}
	return out
}

// ProbeResult identifies a mount found on a port.
type ProbeResult struct {
	Port     string
	Model    string
	Firmware string
}

// modelMarkers are substrings of the model reply that identify a supported
// mount.
var modelMarkers = []string{"ZWO", "AM5", "AM3"}

// Probe opens a port, asks for the model string, and accepts the port only
// if the reply carries a known marker. The firmware version is then fetched
// best effort.
func Probe(open Opener, port string, baud int, readTimeout time.Duration, logger *log.Logger) (ProbeResult, error) {
	s := NewSession(Config{
		Port:        port,
		Baud:        baud,
		ReadTimeout: readTimeout,
		Open:        open,
		Logger:      logger,
	})
	if err := s.Connect(); err != nil {
		return ProbeResult{}, err
	}
	defer s.Disconnect()

	model, err := s.SendRaw(":GVP#")
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe %s: %w", port, err)
	}

	recognized := false
	for _, marker := range modelMarkers {
		if strings.Contains(model, marker) {
			recognized = true
			break
		}
	}
	if !recognized {
		return ProbeResult{}, fmt.Errorf("probe %s: %q is not a supported mount", port, model)
	}

	result := ProbeResult{Port: port, Model: model}
	if fw, err := s.SendRaw(":GV#"); err == nil {
		result.Firmware = fw
	}
	return result, nil
}

// Discover filters the enumerator's listing and probes every candidate,
// returning the ports where a supported mount answered.
func Discover(enum Enumerator, open Opener, baud int, readTimeout time.Duration, logger *log.Logger) ([]ProbeResult, error) {
	ports, err := enum()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}

	var found []ProbeResult
	for _, p := range LikelyMountPorts(ports) {
		r, err := Probe(open, p.Name, baud, readTimeout, logger)
		if err != nil {
			logger.Printf("mount: %v", err)
			continue
		}
		found = append(found, r)
	}
	return found, nil
}
