package models

import "time"

// Message is a persisted chat record. Once returned by the store it never
// changes; its id is assigned by the store and never reused.
type Message struct {
	ID        uint64    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Timestamp time.Time `json:"timestamp"`
}
