package domain

import (
	"time"
)

type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// Message is one turn of a conversation. Messages are passed by value and
// never modified once created.
type Message struct {
	Role      Role
	Content   string
	CreatedAt time.Time
}

func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, CreatedAt: time.Now().UTC()}
}

func HumanMessage(content string) Message  { return NewMessage(RoleHuman, content) }
func AIMessage(content string) Message     { return NewMessage(RoleAI, content) }
func SystemMessage(content string) Message { return NewMessage(RoleSystem, content) }

// ParseRole maps the role spellings used by chat APIs onto Role.
func ParseRole(s string) Role {
	switch s {
	case "system":
		return RoleSystem
	case "ai", "assistant":
		return RoleAI
	default:
		return RoleHuman
	}
}

// Label is the prefix used when printing a transcript.
func (r Role) Label() string {
	switch r {
	case RoleSystem:
		return "System"
	case RoleAI:
		return "AI"
	default:
		return "You"
	}
}
