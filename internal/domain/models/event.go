package models

// Event types pushed to visualization subscribers.
const (
	EventHeartbeat = "heartbeat"
	EventState     = "state"
	EventData      = "data"
)

// Acquisition states as reported in state events.
const (
	StateStarted = "started"
	StateStopped = "stopped"
)

// HeartbeatEvent keeps idle subscriber connections alive.
type HeartbeatEvent struct {
	Type string `json:"type"`
}

// StateEvent announces an acquisition transition.
type StateEvent struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

// DataEvent carries one buffered reading.
type DataEvent struct {
	Type      string  `json:"type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Timestamp float64 `json:"timestamp"`
}

func NewHeartbeatEvent() HeartbeatEvent { return HeartbeatEvent{Type: EventHeartbeat} }

func NewStateEvent(active bool) StateEvent {
	if active {
		return StateEvent{Type: EventState, State: StateStarted}
	}
	return StateEvent{Type: EventState, State: StateStopped}
}

func NewDataEvent(r Reading) DataEvent {
	return DataEvent{Type: EventData, X: r.X, Y: r.Y, Z: r.Z, Timestamp: r.Timestamp}
}
