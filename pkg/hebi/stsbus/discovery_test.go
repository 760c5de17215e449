package stsbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterCandidatePorts(t *testing.T) {
	tests := []struct {
		name     string
		ports    []string
		expected []string
	}{
		{
			name:     "Linux USB ports",
			ports:    []string{"/dev/ttyUSB1", "/dev/ttyS0", "/dev/ttyACM0", "/dev/null"},
			expected: []string{"/dev/ttyACM0", "/dev/ttyUSB1"},
		},
		{
			name:     "macOS USB ports",
			ports:    []string{"/dev/tty.usbmodem123", "/dev/tty.Bluetooth-Incoming-Port", "/dev/cu.usbserial-AB"},
			expected: []string{"/dev/cu.usbserial-AB", "/dev/tty.usbmodem123"},
		},
		{
			name:     "Windows COM ports",
			ports:    []string{"COM3", "COM10", "LPT1"},
			expected: []string{"COM10", "COM3"},
		},
		{
			name:     "No matching ports",
			ports:    []string{"/dev/null", "/dev/zero"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, filterCandidatePorts(tt.ports))
		})
	}
}

func TestPortSuffix(t *testing.T) {
	assert.Equal(t, "ttyUSB0", portSuffix("/dev/ttyUSB0"))
	assert.Equal(t, "usbmodem123", portSuffix("/dev/tty.usbmodem123"))
	assert.Equal(t, "usbserial-AB", portSuffix("/dev/cu.usbserial-AB"))
	assert.Equal(t, "COM3", portSuffix("COM3"))
}

func TestEntryName(t *testing.T) {
	assert.Equal(t, "0.1", entryName(0, 1))
	assert.Equal(t, "2.13", entryName(2, 13))
}

func TestParseAddress(t *testing.T) {
	port, id, err := parseAddress(address("/dev/ttyUSB0", 5))
	assert.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", port)
	assert.Equal(t, 5, id)

	_, _, err = parseAddress("garbage")
	assert.Error(t, err)

	_, _, err = parseAddress("/dev/ttyUSB0#x")
	assert.Error(t, err)
}
