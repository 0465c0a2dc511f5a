package types

// Inbound peer message types.
const (
	MsgExtensionConnected = "extension_connected"
	MsgScriptResult       = "SCRIPT_RESULT"
	MsgScriptError        = "SCRIPT_ERROR"
	MsgNetworkRequest     = "network_request"
)

// Outbound session message types.
const (
	MsgConnectionEstablished  = "connection_established"
	MsgConnectionConfirmed    = "connection_confirmed"
	MsgAutomationCommand      = "automation_command"
	MsgCommandError           = "command_error"
	MsgNetworkLogConfirmation = "network_log_confirmation"
	MsgNetworkLogError        = "network_log_error"
)

// PayloadExecuteScript is the only payload type the peer executes.
const PayloadExecuteScript = "EXECUTE_SCRIPT"

// InboundMessage is the union of every peer->session frame. Only the fields
// relevant to Type are populated.
type InboundMessage struct {
	Type      string                 `json:"type"`
	Status    string                 `json:"status,omitempty"`
	CommandID string                 `json:"command_id,omitempty"`
	Result    interface{}            `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Stack     string                 `json:"stack,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Event     string                 `json:"event,omitempty"`
	Timestamp interface{}            `json:"timestamp,omitempty"`
}

// ExtensionID extracts data.extensionId from a hello frame.
func (m *InboundMessage) ExtensionID() string {
	if m.Data == nil {
		return ""
	}
	if v, ok := m.Data["extensionId"].(string); ok {
		return v
	}
	return ""
}

// Payload is a built command ready for the wire.
type Payload struct {
	Type   string `json:"type"`
	Script string `json:"script"`
}

// CommandFrame is the command body of an automation_command.
type CommandFrame struct {
	Type      string `json:"type"`
	Script    string `json:"script"`
	CommandID string `json:"command_id"`
}

// AutomationCommand is sent to the peer for every dispatch.
type AutomationCommand struct {
	Type      string       `json:"type"`
	Command   CommandFrame `json:"command"`
	Timestamp string       `json:"timestamp"`
}

// Notice is a session acknowledgment (connection_established, connection_confirmed).
type Notice struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// CommandErrorNotice echoes a script failure back to the peer.
type CommandErrorNotice struct {
	Type      string `json:"type"`
	CommandID string `json:"command_id"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// NetworkLogAck acknowledges a network_request frame.
type NetworkLogAck struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}
