package model

import (
	"fmt"

	"coach-connect/internal/domain"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn of the conversation as the browser sends it.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ValidateMessages checks the request shape. allowSystem admits system
// messages, which only the direct flow forwards to the model.
func ValidateMessages(msgs []Message, allowSystem bool) error {
	if len(msgs) == 0 {
		return fmt.Errorf("%w: messages must not be empty", domain.ErrInvalidArgument)
	}
	for i, m := range msgs {
		switch m.Role {
		case RoleUser, RoleAssistant:
		case RoleSystem:
			if !allowSystem {
				return fmt.Errorf("%w: messages[%d]: role %q not allowed", domain.ErrInvalidArgument, i, m.Role)
			}
		default:
			return fmt.Errorf("%w: messages[%d]: unknown role %q", domain.ErrInvalidArgument, i, m.Role)
		}
	}
	return nil
}

// SplitLast returns every message but the last one and the last message.
func SplitLast(msgs []Message) ([]Message, Message) {
	if len(msgs) == 0 {
		return nil, Message{}
	}
	return msgs[:len(msgs)-1], msgs[len(msgs)-1]
}

// Alternates reports whether roles strictly alternate between assistant and
// user, which is what the questionnaire pairing expects.
func Alternates(msgs []Message) bool {
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Role == msgs[i-1].Role {
			return false
		}
	}
	return true
}
