package models

// Lifecycle states of one ingestion run, recorded in the system log.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusError     = "error"
)
