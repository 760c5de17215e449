package stsbus

import (
	"path/filepath"
	"slices"
	"strings"

	"go.bug.st/serial/enumerator"
)

// USB serial adapter device names. cu.* and tty.* are the macOS call-out and
// dial-in nodes of the same adapter.
var adapterPrefixes = []string{
	"/dev/ttyUSB",
	"/dev/ttyACM",
	"/dev/tty.usbmodem",
	"/dev/tty.usbserial",
	"/dev/cu.usbmodem",
	"/dev/cu.usbserial",
	"COM",
}

// filterCandidatePorts keeps the adapter ports, sorted so bus indices are
// stable between runs.
func filterCandidatePorts(ports []string) []string {
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		if isCandidatePort(p) {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

func isCandidatePort(port string) bool {
	if strings.Contains(port, "Bluetooth") {
		return false
	}
	return slices.ContainsFunc(adapterPrefixes, func(prefix string) bool {
		return strings.HasPrefix(port, prefix)
	})
}

// portSuffix shortens a port path for log lines.
func portSuffix(port string) string {
	base := filepath.Base(port)
	for _, node := range []string{"tty.", "cu."} {
		if rest, ok := strings.CutPrefix(base, node); ok && strings.HasPrefix(rest, "usb") {
			return rest
		}
	}
	return base
}

func enumerateSerialPorts() ([]string, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(details))
	for i, d := range details {
		names[i] = d.Name
	}
	return names, nil
}
