// Package types contains shared type definitions used across promptsmith.
// It helps avoid import cycles between the cache, providers and dispatch packages.
package types

import (
	"encoding/json"
	"strings"
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// Conversation is an ordered list of messages sent as one chat request.
type Conversation []Message

// NewConversation builds the common system + user pair.
func NewConversation(system, user string) Conversation {
	return Conversation{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
}

// Canonical returns the JSON encoding of the conversation. Two conversations are
// the same request content exactly when their canonical forms are equal.
func (c Conversation) Canonical() string {
	if c == nil {
		c = Conversation{}
	}
	raw, err := json.Marshal(c)
	if err != nil {
		// Message holds only strings, Marshal cannot fail.
		panic(err)
	}
	return string(raw)
}

// String renders the conversation as "role: content" lines.
func (c Conversation) String() string {
	var b strings.Builder
	for _, m := range c {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// Request describes one chat call. It is treated as immutable once submitted.
type Request struct {
	Conversation Conversation
	Temperature  float64
	Model        string
}
