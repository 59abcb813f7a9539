package api

type ClientEvent struct {
	EventType ClientEventType `json:"eventType"`
	EventData interface{}     `json:"eventData"`
	Status    string          `json:"status"`
	Error     error           `json:"error"`
}

type ClientEventType string

const (
	ClientEventType_Connected          ClientEventType = "connected"
	ClientEventType_Disconnected       ClientEventType = "disconnected"
	ClientEventType_ReconnectScheduled ClientEventType = "reconnectScheduled"
	ClientEventType_AuthRequired       ClientEventType = "authRequired"
	ClientEventType_Error              ClientEventType = "error"
)

type ConnectionState int

const (
	ConnectionState_Idle ConnectionState = iota
	ConnectionState_Connecting
	ConnectionState_Open
	ConnectionState_Closed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionState_Idle:
		return "idle"
	case ConnectionState_Connecting:
		return "connecting"
	case ConnectionState_Open:
		return "open"
	case ConnectionState_Closed:
		return "closed"
	}
	return "unknown"
}
