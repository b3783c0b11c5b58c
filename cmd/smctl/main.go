// Smctl is the command-line client for monitoring and controlling a running
// satmountd instance. It connects over HTTP and WebSocket to query status,
// drive the mount, and stream live events from the daemon.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/kwheeler87/satmount/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "Satmount daemon URL (e.g. http://192.168.8.1:8080)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter state,pulse)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags like --hours are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	// ── Query commands ────────────────────────────────────────────
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "health":
		err = ctl.Health(*host, *jsonOut)

	case "version":
		err = ctl.VersionInfo(*host, *jsonOut)

	case "config":
		err = ctl.Config(*host, *jsonOut)

	case "ports":
		err = ctl.Ports(*host, *jsonOut)

	case "position":
		err = ctl.Position(*host, *jsonOut)

	case "passes":
		opts := ctl.PassesOptions{JSON: *jsonOut}
		passFlags := pflag.NewFlagSet("passes", pflag.ContinueOnError)
		passFlags.IntVar(&opts.NoradID, "norad", 0, "NORAD catalog ID")
		passFlags.IntVar(&opts.Count, "count", 0, "Limit number of passes shown")
		passFlags.IntVar(&opts.Hours, "hours", 0, "Prediction horizon in hours")
		_ = passFlags.Parse(subArgs)
		err = ctl.Passes(*host, opts)

	case "next-pass":
		opts := ctl.NextPassOptions{JSON: *jsonOut}
		npFlags := pflag.NewFlagSet("next-pass", pflag.ContinueOnError)
		npFlags.IntVar(&opts.NoradID, "norad", 0, "NORAD catalog ID")
		_ = npFlags.Parse(subArgs)
		err = ctl.NextPass(*host, opts)

	case "tle":
		var norad int
		tleFlags := pflag.NewFlagSet("tle", pflag.ContinueOnError)
		tleFlags.IntVar(&norad, "norad", 0, "NORAD catalog ID")
		_ = tleFlags.Parse(subArgs)
		err = ctl.TLE(*host, norad, *jsonOut)

	// ── Mount commands ────────────────────────────────────────────
	case "goto":
		var ra, dec float64
		if err = parseCoords(subArgs, &ra, &dec); err == nil {
			err = ctl.Goto(*host, ra, dec, *jsonOut)
		}

	case "sync":
		var ra, dec float64
		if err = parseCoords(subArgs, &ra, &dec); err == nil {
			err = ctl.Sync(*host, ra, dec, *jsonOut)
		}

	case "move":
		if len(subArgs) < 1 {
			err = fmt.Errorf("usage: smctl move <n|s|e|w>")
			break
		}
		err = ctl.Move(*host, subArgs[0], *jsonOut)

	case "stop":
		dir := ""
		if len(subArgs) > 0 {
			dir = subArgs[0]
		}
		err = ctl.Stop(*host, dir, *jsonOut)

	case "slew-rate":
		if len(subArgs) < 1 {
			err = fmt.Errorf("usage: smctl slew-rate <0-9>")
			break
		}
		var rate int
		if rate, err = strconv.Atoi(subArgs[0]); err == nil {
			err = ctl.SlewRate(*host, rate, *jsonOut)
		}

	case "tracking":
		switch {
		case len(subArgs) == 0:
			err = ctl.Tracking(*host, false, false, "", *jsonOut)
		case subArgs[0] == "on" || subArgs[0] == "off":
			rate := ""
			trkFlags := pflag.NewFlagSet("tracking", pflag.ContinueOnError)
			trkFlags.StringVar(&rate, "rate", "", "Tracking rate (sidereal, lunar, solar)")
			_ = trkFlags.Parse(subArgs[1:])
			err = ctl.Tracking(*host, true, subArgs[0] == "on", rate, *jsonOut)
		default:
			err = fmt.Errorf("usage: smctl tracking [on|off] [--rate RATE]")
		}

	case "guide":
		if len(subArgs) < 2 {
			err = fmt.Errorf("usage: smctl guide <n|s|e|w> <ms>")
			break
		}
		var ms int
		if ms, err = strconv.Atoi(subArgs[1]); err == nil {
			err = ctl.Guide(*host, subArgs[0], ms, *jsonOut)
		}

	case "home":
		err = ctl.Home(*host, *jsonOut)

	case "park":
		err = ctl.Park(*host, *jsonOut)

	case "unpark":
		err = ctl.Unpark(*host, *jsonOut)

	case "site":
		var lat, lon float64
		if err = parseCoords(subArgs, &lat, &lon); err != nil {
			err = fmt.Errorf("usage: smctl site <latitude> <longitude>")
			break
		}
		err = ctl.Site(*host, lat, lon, *jsonOut)

	case "raw":
		if len(subArgs) < 1 {
			err = fmt.Errorf("usage: smctl raw '<command>'")
			break
		}
		err = ctl.Raw(*host, subArgs[0], *jsonOut)

	// ── Tracker commands ──────────────────────────────────────────
	case "track":
		if len(subArgs) < 1 {
			err = fmt.Errorf("usage: smctl track <start|stop|status>")
			break
		}
		switch subArgs[0] {
		case "start":
			if len(subArgs) < 2 {
				err = fmt.Errorf("usage: smctl track start <norad-id>")
				break
			}
			var norad int
			if norad, err = strconv.Atoi(subArgs[1]); err == nil {
				err = ctl.TrackStart(*host, norad, *jsonOut)
			}
		case "stop":
			err = ctl.TrackStop(*host, *jsonOut)
		case "status":
			err = ctl.TrackStatus(*host, *jsonOut)
		default:
			err = fmt.Errorf("usage: smctl track <start|stop|status>")
		}

	case "tle-refresh":
		var norad int
		refreshFlags := pflag.NewFlagSet("tle-refresh", pflag.ContinueOnError)
		refreshFlags.IntVar(&norad, "norad", 0, "NORAD catalog ID")
		_ = refreshFlags.Parse(subArgs)
		err = ctl.TLERefresh(*host, norad, *jsonOut)

	// ── Live streaming ────────────────────────────────────────────
	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// parseCoords reads two float positional arguments.
func parseCoords(args []string, a, b *float64) error {
	if len(args) < 2 {
		return fmt.Errorf("two numeric arguments required")
	}
	var err error
	if *a, err = strconv.ParseFloat(args[0], 64); err != nil {
		return fmt.Errorf("bad value %q: %w", args[0], err)
	}
	if *b, err = strconv.ParseFloat(args[1], 64); err != nil {
		return fmt.Errorf("bad value %q: %w", args[1], err)
	}
	return nil
}

func usage() {
	fmt.Print(`
  smctl — Satmount control CLI

  USAGE
    smctl [flags] <command> [command-flags]

  COMMANDS (query)
    status          Show daemon state, mount connection, and tracker activity
    health          Check daemon liveness
    version         Show CLI and daemon version information
    config          Show the daemon's running configuration
    ports           List serial ports visible to the daemon
    position        Show the mount's current pointing
    passes          List upcoming passes of a satellite
    next-pass       Show the next upcoming pass
    tle             Show the cached TLE for a satellite

  COMMANDS (mount)
    goto RA DEC     Slew to equatorial coordinates (RA hours, Dec degrees)
    sync RA DEC     Sync the mount's pointing to coordinates
    move DIR        Start slewing n/s/e/w
    stop [DIR]      Stop one direction, or all motion
    slew-rate N     Set the manual slew rate preset (0-9)
    tracking        Show or set sidereal tracking (on/off)
    guide DIR MS    Issue a timed guide pulse
    home            Send the mount to its home position
    park            Park the mount
    unpark          Unpark the mount
    site LAT LON    Program the observing site into the mount
    raw CMD         Send a raw protocol command

  COMMANDS (tracker)
    track start ID  Begin closed-loop tracking of a NORAD catalog ID
    track stop      Stop tracking and halt the mount
    track status    Show tracker state and satellite position
    tle-refresh     Force a fresh TLE download

  COMMANDS (live)
    watch           Stream live events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    passes:
        --norad ID      NORAD catalog ID (default: currently tracked satellite)
        --count N       Limit number of passes shown
        --hours N       Prediction horizon in hours

    next-pass, tle, tle-refresh:
        --norad ID      NORAD catalog ID (default: currently tracked satellite)

    tracking on/off:
        --rate RATE     Tracking rate (sidereal, lunar, solar)

  EXAMPLES
    smctl status
    smctl --json status
    smctl --host http://192.168.8.1:8080 watch
    smctl ports
    smctl goto 13.4 54.9
    smctl move w
    smctl stop
    smctl track start 25544
    smctl track status
    smctl passes --norad 25544 --count 5
    smctl next-pass --norad 25544
    smctl tle-refresh --norad 25544
    smctl watch --filter state,pulse,abort
    smctl raw ':GVP#'

`)
}
