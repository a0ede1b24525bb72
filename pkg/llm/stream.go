// Streaming types and response assembly
package llm

import (
	"sort"
	"strings"
)

// StreamChunk is an incremental delta of a Response. Chunks belonging to one
// request share ID; the terminal chunk carries a non-empty FinishReason.
type StreamChunk struct {
	ID           string         `json:"id,omitempty"`
	Model        string         `json:"model,omitempty"`
	Index        int            `json:"index"`
	Role         MessageRole    `json:"role,omitempty"`
	Delta        string         `json:"delta,omitempty"`
	FinishReason FinishReason   `json:"finish_reason,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// IsTerminal reports whether this chunk ends its choice
func (c StreamChunk) IsTerminal() bool {
	return c.FinishReason != ""
}

// StreamEvent is a single event on a streaming response: either a chunk or a
// terminal error, never both
type StreamEvent struct {
	Chunk *StreamChunk `json:"chunk,omitempty"`
	Err   *Error       `json:"error,omitempty"`
}

// IsDelta returns true if this event carries content
func (e StreamEvent) IsDelta() bool {
	return e.Chunk != nil && e.Chunk.Delta != ""
}

// IsDone returns true if this event terminates a choice
func (e StreamEvent) IsDone() bool {
	return e.Chunk != nil && e.Chunk.IsTerminal()
}

// IsError returns true if this is a terminal error event
func (e StreamEvent) IsError() bool {
	return e.Err != nil
}

// NewChunkEvent creates a stream event carrying a chunk
func NewChunkEvent(chunk *StreamChunk) StreamEvent {
	return StreamEvent{Chunk: chunk}
}

// NewErrorEvent creates a terminal error stream event
func NewErrorEvent(err *Error) StreamEvent {
	return StreamEvent{Err: err}
}

// CollectStream drains a stream and assembles the chunks into a full
// Response: deltas are concatenated per choice index and each choice takes
// its terminal chunk's finish reason. An error event aborts assembly and is
// returned as-is.
func CollectStream(events <-chan StreamEvent) (*Response, error) {
	type partial struct {
		role     MessageRole
		content  strings.Builder
		finish   FinishReason
		metadata map[string]any
	}

	resp := &Response{}
	parts := make(map[int]*partial)

	for event := range events {
		if event.Err != nil {
			return nil, event.Err
		}
		chunk := event.Chunk
		if chunk == nil {
			continue
		}
		if resp.ID == "" {
			resp.ID = chunk.ID
		}
		if resp.Model == "" {
			resp.Model = chunk.Model
		}

		part, ok := parts[chunk.Index]
		if !ok {
			part = &partial{role: RoleAssistant}
			parts[chunk.Index] = part
		}
		if chunk.Role != "" {
			part.role = chunk.Role
		}
		part.content.WriteString(chunk.Delta)
		if chunk.FinishReason != "" {
			part.finish = chunk.FinishReason
		}
		if len(chunk.Metadata) > 0 {
			if part.metadata == nil {
				part.metadata = make(map[string]any, len(chunk.Metadata))
			}
			for k, v := range chunk.Metadata {
				part.metadata[k] = v
			}
		}
	}

	indexes := make([]int, 0, len(parts))
	for index := range parts {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)

	for _, index := range indexes {
		part := parts[index]
		resp.Choices = append(resp.Choices, Choice{
			Index:        index,
			Message:      Message{Role: part.role, Content: part.content.String()},
			FinishReason: part.finish,
			Metadata:     part.metadata,
		})
	}

	return resp, nil
}
