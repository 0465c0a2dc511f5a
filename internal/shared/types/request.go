package types

// ExecuteRequest is the body of POST /api/commands/execute.
type ExecuteRequest struct {
	Command        string                 `json:"command" binding:"required"`
	Params         map[string]interface{} `json:"params"`
	Timeout        *int                   `json:"timeout,omitempty"`
	WaitForElement bool                   `json:"wait_for_element,omitempty"`
}

// Status values carried by caller-facing responses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusPending = "pending"
)

// Outcome is the caller-facing result of submit.
type Outcome struct {
	Status  string      `json:"status"`
	Result  interface{} `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
}

// CommandInfo describes one catalog entry for listCommands.
type CommandInfo struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Type          string            `json:"type"`
	Script        string            `json:"script,omitempty"`
	Params        map[string]string `json:"params,omitempty"`
	Stats         *CommandStats     `json:"stats,omitempty"`
	LastExecution *string           `json:"last_execution,omitempty"`
}

// CommandStats aggregates history records for one command.
type CommandStats struct {
	Attempted        int     `json:"attempted"`
	Success          int     `json:"success"`
	Failed           int     `json:"failed"`
	Pending          int     `json:"pending"`
	AvgExecutionTime float64 `json:"avg_execution_time"`
	P95ExecutionTime float64 `json:"p95_execution_time"`
}

// PeerStatus is reported by GET /api/peer.
type PeerStatus struct {
	Connected   bool   `json:"connected"`
	SessionID   string `json:"session_id,omitempty"`
	State       string `json:"state"`
	ExtensionID string `json:"extension_id,omitempty"`
	Pending     int    `json:"pending"`
}
