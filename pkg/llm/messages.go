// Message types and functionality
package llm

import "fmt"

// MessageRole defines the role of a message sender
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// IsValidRole checks if the given role is one of the supported roles
func IsValidRole(role MessageRole) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// Message represents a single chat message
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
	Name    string      `json:"name,omitempty"`
	// Metadata is passed through unchanged; providers never see it
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates a new Message with the given role and content
func NewMessage(role MessageRole, content string) Message {
	return Message{Role: role, Content: content}
}

// SetMetadata sets a metadata key-value pair
func (m *Message) SetMetadata(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// GetMetadata retrieves a metadata value by key
func (m Message) GetMetadata(key string) (any, bool) {
	if m.Metadata == nil {
		return nil, false
	}
	value, exists := m.Metadata[key]
	return value, exists
}

// Validate checks that the message is well-formed
func (m Message) Validate() error {
	if !IsValidRole(m.Role) {
		return fmt.Errorf("invalid message role %q", m.Role)
	}
	return nil
}

// DeepCopy creates a deep copy of the message, including metadata.
// Modifications to the copy will not affect the original message.
func (m Message) DeepCopy() Message {
	out := Message{
		Role:    m.Role,
		Content: m.Content,
		Name:    m.Name,
	}
	if len(m.Metadata) > 0 {
		out.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
