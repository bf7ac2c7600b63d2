package domain

import "errors"

var (
	// ErrCommandsFull is returned when the command mailbox is full.
	ErrCommandsFull = errors.New("command mailbox full")
	// ErrStopped is returned once the engine has exited.
	ErrStopped = errors.New("engine stopped")
)

// Command is pushed by the UI collaborator and applied at the start of a tick.
type Command int

const (
	CommandPause Command = iota + 1
	CommandNextChannel
	CommandPrevChannel
	CommandExit
)

func (c Command) String() string {
	switch c {
	case CommandPause:
		return "pause"
	case CommandNextChannel:
		return "next-channel"
	case CommandPrevChannel:
		return "prev-channel"
	case CommandExit:
		return "exit"
	}
	return "unknown"
}

// ParseCommand maps the wire name of a command back to its value.
func ParseCommand(s string) (Command, bool) {
	for _, c := range []Command{CommandPause, CommandNextChannel, CommandPrevChannel, CommandExit} {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}
