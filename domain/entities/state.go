package entities

// WorkerState is the worker runtime lifecycle.
type WorkerState int

const (
	WorkerUninitialized WorkerState = iota
	WorkerLoading
	WorkerReady
	WorkerFailed
)

func (s WorkerState) String() string {
	switch s {
	case WorkerUninitialized:
		return "uninitialized"
	case WorkerLoading:
		return "loading"
	case WorkerReady:
		return "ready"
	case WorkerFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HostState is the host controller lifecycle for one model.
type HostState int

const (
	HostUnconfigured HostState = iota
	HostAwaitingModelReady
	HostReady
	HostFailed
	HostClosed
)

func (s HostState) String() string {
	switch s {
	case HostUnconfigured:
		return "unconfigured"
	case HostAwaitingModelReady:
		return "awaiting-model-ready"
	case HostReady:
		return "ready"
	case HostFailed:
		return "failed"
	case HostClosed:
		return "closed"
	default:
		return "unknown"
	}
}
