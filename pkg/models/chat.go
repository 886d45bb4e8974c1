package models

import "time"

// ChatSummary describes the most recent exchange with one counterpart, used
// by the conversation-list endpoint.
type ChatSummary struct {
	User        string    `json:"user"`
	LastMessage string    `json:"last_message"`
	Timestamp   time.Time `json:"timestamp"`
	// Unread is reserved for clients that track read state locally.
	Unread bool `json:"unread"`
}
