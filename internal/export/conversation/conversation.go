// Package conversation holds the canonical message model and the normalizer
// that turns raw extractor output into it.
package conversation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edgecomet/chatexport/internal/export/exporterr"
)

// Role is the canonical speaker of a message
type Role int

const (
	RoleUser Role = iota + 1
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return "Unknown"
	}
}

// sourceName is the lowercase role name used by the transcript markup
func (r Role) sourceName() string {
	return strings.ToLower(r.String())
}

func (r Role) MarshalJSON() ([]byte, error) {
	if r != RoleUser && r != RoleAssistant {
		return nil, fmt.Errorf("unknown role %d", int(r))
	}
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role, ok := ParseRole(s)
	if !ok {
		return fmt.Errorf("unknown role %q", s)
	}
	*r = role
	return nil
}

// ParseRole maps a source role name to a canonical Role, case-insensitively.
// System, tool and any other roles are rejected.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, true
	case "assistant":
		return RoleAssistant, true
	default:
		return 0, false
	}
}

// Message is one canonical conversation turn
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Markup is true when Content is rendered source HTML rather than plain text
	Markup bool `json:"-"`
}

// RawItem is strategy-neutral extractor output before normalization
type RawItem struct {
	Role   string
	Parts  []string
	Markup bool
}

// Normalize filters and canonicalizes raw items, preserving their order.
// Returns an empty-conversation extraction error when nothing survives.
func Normalize(items []RawItem) ([]Message, error) {
	messages := make([]Message, 0, len(items))

	for _, item := range items {
		role, ok := ParseRole(item.Role)
		if !ok {
			continue
		}

		content := strings.TrimSpace(strings.Join(item.Parts, " "))
		if content == "" {
			continue
		}

		messages = append(messages, Message{
			Role:    role,
			Content: content,
			Markup:  item.Markup,
		})
	}

	if len(messages) == 0 {
		return nil, exporterr.Empty("empty conversation")
	}
	return messages, nil
}

// FromMessages converts canonical messages back into raw items so that
// Normalize(FromMessages(m)) == m.
func FromMessages(messages []Message) []RawItem {
	items := make([]RawItem, len(messages))
	for i, m := range messages {
		items[i] = RawItem{
			Role:   m.Role.sourceName(),
			Parts:  []string{m.Content},
			Markup: m.Markup,
		}
	}
	return items
}
