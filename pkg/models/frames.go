package models

// Wire frame types pushed over live transports.
const (
	FrameTypeMessage   = "message"
	FrameTypeUsersList = "users_list"
	FrameTypeError     = "error"
)

// PresenceFrame carries the current online set to every live transport.
type PresenceFrame struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// DeliveryFrame carries a persisted message to a connected recipient (and,
// when echo is enabled, back to the sender as the acknowledgement).
type DeliveryFrame struct {
	Type string `json:"type"`
	Message
}

// ErrorFrame reports a rejected inbound frame to the sending client.
type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewPresenceFrame(users []string) PresenceFrame {
	return PresenceFrame{Type: FrameTypeUsersList, Users: users}
}

func NewDeliveryFrame(m Message) DeliveryFrame {
	return DeliveryFrame{Type: FrameTypeMessage, Message: m}
}

func NewErrorFrame(msg string) ErrorFrame {
	return ErrorFrame{Type: FrameTypeError, Error: msg}
}
