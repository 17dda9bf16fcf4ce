package domain

import (
	"fmt"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultThreadID is the thread used by the single shared conversation.
const DefaultThreadID = "assignment"

// Message is a single turn entry in a conversation.
type Message struct {
	Role      Role
	Content   string
	CreatedAt time.Time
}

// ConversationState is the persisted history of one thread.
type ConversationState struct {
	ThreadID string
	Messages []Message
	// Context is the context string retrieved for the most recent turn.
	Context string
}

// NewMessage creates a message stamped with the current UTC time.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// ValidateMessage validates a Message instance
func ValidateMessage(m Message) error {
	if !isValidRole(m.Role) {
		return fmt.Errorf("message role is invalid: %s", m.Role)
	}
	return nil
}

func isValidRole(r Role) bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
