package api

import (
	"encoding/json"
	"time"
)

// ExecuteRequest is the JSON body for POST /execute.
type ExecuteRequest struct {
	Script string `json:"script"`
}

// OperationRequest is the JSON body for POST /op/{name}.
type OperationRequest struct {
	Args map[string]any `json:"args,omitempty"`
}

// CommandResponse is returned when an exchange completes.
type CommandResponse struct {
	CommandID  string          `json:"command_id"`
	Status     string          `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

// OperationSummary describes one registered operation for GET /op.
type OperationSummary struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Params      []OperationParam `json:"params,omitempty"`
}

type OperationParam struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// OperationListResponse is returned by GET /op.
type OperationListResponse struct {
	Operations []OperationSummary `json:"operations"`
}

// CommandEntry is one journal row for GET /commands.
type CommandEntry struct {
	CommandID   string     `json:"command_id"`
	Operation   string     `json:"operation"`
	ScriptHash  string     `json:"script_hash"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  *int64     `json:"duration_ms,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
}

// CommandListResponse is returned by GET /commands.
type CommandListResponse struct {
	Commands []CommandEntry `json:"commands"`
}

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status           string `json:"status"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	CommandsInFlight int    `json:"commands_in_flight"`
	OperationsLoaded int    `json:"operations_loaded"`
	BridgeDir        string `json:"bridge_dir"`
}
