package driver

import (
	"fmt"
	"log"
	"os/exec"
)

// execCommand allows mocking in tests
var execCommand = exec.Command

// FrequencyToChannel maps a 2.4/5 GHz centre frequency in MHz to its channel
// number. Unknown frequencies map to 0.
func FrequencyToChannel(freq int) int {
	switch {
	case freq == 2484:
		return 14
	case freq >= 2412 && freq <= 2472:
		return (freq - 2407) / 5
	case freq >= 5000 && freq <= 5895:
		return (freq - 5000) / 5
	case freq >= 4915 && freq <= 4980:
		return (freq - 4000) / 5
	}
	return 0
}

// ChannelToFrequency is the inverse of FrequencyToChannel for the 2.4 GHz band
// and the common 5 GHz channels.
func ChannelToFrequency(ch int) int {
	switch {
	case ch == 14:
		return 2484
	case ch >= 1 && ch <= 13:
		return 2407 + ch*5
	case ch >= 32 && ch <= 177:
		return 5000 + ch*5
	}
	return 0
}

// SetInterfaceChannel sets the WiFi channel for a given interface.
func SetInterfaceChannel(iface string, channel int) error {
	if channel <= 0 {
		return fmt.Errorf("invalid channel: %d", channel)
	}
	cmd := execCommand("iw", iface, "set", "channel", fmt.Sprintf("%d", channel))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to set channel %d on %s: %v (%s)", channel, iface, err, string(output))
	}
	return nil
}

// KillConflictingProcesses stops NetworkManager and wpa_supplicant so they do
// not retune the card behind our back.
func KillConflictingProcesses() error {
	return runAll([][]string{
		{"systemctl", "stop", "NetworkManager"},
		{"systemctl", "stop", "wpa_supplicant"},
	}, true)
}

// RestoreNetworkServices restarts NetworkManager and wpa_supplicant.
func RestoreNetworkServices() error {
	return runAll([][]string{
		{"systemctl", "start", "wpa_supplicant"},
		{"systemctl", "start", "NetworkManager"},
	}, false)
}

// EnableMonitorMode puts the interface into monitor mode
func EnableMonitorMode(iface string) error {
	log.Printf("Enabling monitor mode on %s...", iface)
	if err := runCmd("ip", "link", "set", iface, "down"); err != nil {
		return err
	}
	if err := runCmd("iw", iface, "set", "type", "monitor"); err != nil {
		log.Printf("Hint: 'Device or resource busy' usually means NetworkManager still owns %s", iface)
		return err
	}
	if err := runCmd("ip", "link", "set", iface, "up"); err != nil {
		return err
	}
	return nil
}

// DisableMonitorMode puts the interface back into managed mode
func DisableMonitorMode(iface string) {
	log.Printf("Restoring managed mode on %s...", iface)
	runCmd("ip", "link", "set", iface, "down")
	runCmd("iw", iface, "set", "type", "managed")
	runCmd("ip", "link", "set", iface, "up")
}

func runAll(commands [][]string, stopOnError bool) error {
	var lastErr error
	for _, parts := range commands {
		out, err := execCommand(parts[0], parts[1:]...).CombinedOutput()
		if err != nil {
			lastErr = fmt.Errorf("failed to execute %s %v: %v (%s)", parts[0], parts[1:], err, string(out))
			if stopOnError {
				return lastErr
			}
		}
	}
	return lastErr
}

func runCmd(name string, args ...string) error {
	output, err := execCommand(name, args...).CombinedOutput()
	if err != nil {
		log.Printf("Command failed: %s %v\nOutput: %s", name, args, string(output))
		return err
	}
	return nil
}
