package model

import "time"

// Job status values reported by the gateway.
const (
	StatusQueued   = "queued"
	StatusRunning  = "running"
	StatusFinished = "finished"
)

// Client-observed terminal outcomes. The gateway never reports these;
// they exist so the local journal can record how a poll ended.
const (
	StatusOffline     = "offline"
	StatusTimeout     = "timeout"
	StatusInterrupted = "interrupted"
	StatusError       = "error"
)

// terminalStatuses is the set of statuses a job cannot leave.
var terminalStatuses = map[string]bool{
	StatusFinished:    true,
	StatusOffline:     true,
	StatusTimeout:     true,
	StatusInterrupted: true,
	StatusError:       true,
}

// TerminalStatus reports whether a job in the given status is done.
func TerminalStatus(s string) bool {
	return terminalStatuses[s]
}

// Device describes a remote backend with a qubit-capacity limit. Path is
// the endpoint path relative to the gateway base URL; submit and poll
// share it, disambiguated by payload shape.
type Device struct {
	Name      string `json:"name"`
	MaxQubits int    `json:"max_qubits"`
	Version   string `json:"version"`
	Path      string `json:"path"`
}

// DefaultCatalog returns the fixed list of known gateway devices. There
// is no gateway API for live device discovery, so the catalog is static
// and a device's presence says nothing about its real health.
func DefaultCatalog() []Device {
	return []Device{
		{Name: "simulator", MaxQubits: 11, Version: "0.0.1", Path: "sim/"},
		{Name: "simulator_noise", MaxQubits: 11, Version: "0.0.1", Path: "sim/noise-model-1"},
		{Name: "device", MaxQubits: 4, Version: "0.0.1", Path: "lint/"},
	}
}

// JobRequest is a circuit execution request. Circuit is opaque to this
// layer; serializing it is the circuit compiler's job.
type JobRequest struct {
	Circuit string `json:"circuit"`
	Qubits  int    `json:"qubits"`
	Shots   int    `json:"shots"`
}

// JobHandle identifies a submitted job on a specific device. A handle is
// only meaningful against the catalog snapshot used at submission time;
// there is no cross-session validity guarantee.
type JobHandle struct {
	ExecutionID string `json:"execution_id"`
	Device      string `json:"device"`
}

// Job is a stored record of a submitted job, used by the gateway
// simulator and the client-side submission journal.
type Job struct {
	ID         string     `json:"id"`
	Device     string     `json:"device"`
	Status     string     `json:"status"`
	Qubits     int        `json:"qubits"`
	Shots      int        `json:"shots"`
	Samples    []int      `json:"samples,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
