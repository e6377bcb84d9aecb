package wifi

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// execTimeout bounds the platform tool invocations so a wedged helper
// cannot stall an otherwise short-lived operation.
const execTimeout = 3 * time.Second

const airportPath = "/System/Library/PrivateFrameworks/Apple80211.framework/Resources/airport"

// RealDetector queries the platform's wireless tooling for the associated
// network name.
type RealDetector struct {
	timeout time.Duration
}

// NewRealDetector creates a detector using the host platform's tools.
func NewRealDetector() *RealDetector {
	return &RealDetector{timeout: execTimeout}
}

// CurrentNetwork shells out to iwgetid on Linux, airport on macOS, and
// netsh on Windows. Every failure mode (missing tool, nonzero exit, no
// association) reads as not associated.
func (d *RealDetector) CurrentNetwork() (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	switch runtime.GOOS {
	case "windows":
		out, err := exec.CommandContext(ctx, "netsh", "wlan", "show", "interfaces").Output()
		if err != nil {
			return "", false
		}
		return parseSSIDField(string(out))
	case "darwin":
		out, err := exec.CommandContext(ctx, airportPath, "-I").Output()
		if err != nil {
			return "", false
		}
		return parseSSIDField(string(out))
	default:
		out, err := exec.CommandContext(ctx, "/sbin/iwgetid", "-r").Output()
		if err != nil {
			return "", false
		}
		name := strings.TrimRight(string(out), "\n")
		if name == "" {
			return "", false
		}
		return name, true
	}
}

// parseSSIDField extracts the network name from "SSID : name" style
// output as printed by netsh and airport. Lines like "BSSID" do not
// match because the prefix check is anchored at the line start.
func parseSSIDField(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "SSID") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[idx+1:])
		if name == "" {
			continue
		}
		return name, true
	}
	return "", false
}
