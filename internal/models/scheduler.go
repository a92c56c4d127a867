package models

import "time"

// SchedulerState is the state of the pipeline loop
type SchedulerState string

const (
	StateIdle    SchedulerState = "idle"
	StateRunning SchedulerState = "running"
	StateStopped SchedulerState = "stopped"
)

// SchedulerStatus is a point-in-time view of the pipeline loop
type SchedulerStatus struct {
	State        SchedulerState `json:"state"`
	Schedule     string         `json:"schedule"`
	Passes       int            `json:"passes"`
	Failures     int            `json:"failures"`
	LastRunID    string         `json:"last_run_id,omitempty"`
	LastStarted  *time.Time     `json:"last_started,omitempty"`
	LastFinished *time.Time     `json:"last_finished,omitempty"`
	LastDuration string         `json:"last_duration,omitempty"`
	LastError    string         `json:"last_error,omitempty"`
	NextRun      *time.Time     `json:"next_run,omitempty"`
}
