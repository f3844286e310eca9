package bridge

// State is the worker lifecycle state.
type State int

const (
	StateAbsent State = iota
	StateStarting
	StateReady
	StateExited
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of a bridge.
type Snapshot struct {
	State        State             `json:"-"`
	StateName    string            `json:"state"`
	Connectivity ConnectivityState `json:"connectivity"`
	// WorkerRunning reports a live worker process with its stdin open.
	WorkerRunning bool `json:"worker_running"`
	Consumers     int  `json:"consumers"`
	Pending       int  `json:"pending"`
	Spawns        int  `json:"spawns"`
}
