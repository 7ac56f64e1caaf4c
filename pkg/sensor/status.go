package sensor

import (
	"fmt"
	"net"
)

// The state of the link between the sensor and the game.
type State uint8

const (
	StateListening State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

type Status struct {
	State State
	// Set when listening
	Address string
	Port    int
	// Set when connected
	Remote string
}

func Listening(address string, port int) Status {
	return Status{State: StateListening, Address: address, Port: port}
}

func Connected(remote string) Status {
	return Status{State: StateConnected, Remote: remote}
}

func Disconnected() Status {
	return Status{State: StateDisconnected}
}

// String is the text shells show for the status.
func (s Status) String() string {
	switch s.State {
	case StateListening:
		return fmt.Sprintf("Listening on %s:%d...", s.Address, s.Port)
	case StateConnected:
		return "Client Connected!"
	case StateDisconnected:
		return "Client Disconnected. Awaiting new connection..."
	}
	return s.State.String()
}

// hostAddress finds an IPv4 address the sensor can reach this host on.
func hostAddress() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "?.?.?.?"
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}

		if ip := ipNet.IP.To4(); ip != nil {
			return ip.String()
		}
	}

	return "?.?.?.?"
}
