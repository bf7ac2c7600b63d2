package hopping

import "github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/driver"

// ChannelSwitcher changes the channel of a monitor interface.
type ChannelSwitcher interface {
	SetChannel(iface string, channel int) error
}

// SwitcherFunc adapts a plain function to ChannelSwitcher.
type SwitcherFunc func(iface string, channel int) error

func (f SwitcherFunc) SetChannel(iface string, channel int) error {
	return f(iface, channel)
}

// IWSwitcher retunes through `iw <iface> set channel`.
var IWSwitcher ChannelSwitcher = SwitcherFunc(driver.SetInterfaceChannel)
