package models

import (
	"time"

	"github.com/google/uuid"

	"querydesk/internal/constants"
)

// Conversation is a client-local chat thread scoped to one data source.
// Conversations are never persisted remotely; they live for the lifetime
// of the process.
type Conversation struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Preview    string    `json:"preview"`
	CreatedAt  time.Time `json:"created_at"`
	Unread     bool      `json:"unread,omitempty"`
	QueryCount int       `json:"query_count,omitempty"`
}

type ChatMessage struct {
	ID        string                `json:"id"`
	SenderID  string                `json:"sender_id"`
	Type      constants.MessageType `json:"type"`
	Body      string                `json:"body"`
	SQL       string                `json:"sql,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

func NewChatMessage(senderID string, msgType constants.MessageType, body string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		Type:      msgType,
		Body:      body,
		CreatedAt: time.Now(),
	}
}
