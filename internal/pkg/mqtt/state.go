package mqtt

// State is the lifecycle position of the transport connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Offline
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Offline:
		return "offline"
	}
	return "unknown"
}
