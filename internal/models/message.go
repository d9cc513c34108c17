package models

import "time"

// ChatMessage is a persisted chat message. It is never mutated after creation.
type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}
