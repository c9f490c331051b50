package model

import "github.com/google/uuid"

type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// Message is one entry of the session log. Only the last entry is ever
// rewritten, and only while Streaming is true.
type Message struct {
	ID        string     `json:"id"`
	Sender    Sender     `json:"sender"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
	Streaming bool       `json:"streaming"`
}

func NewUserMessage(content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Sender:  SenderUser,
		Content: content,
	}
}

// NewPendingAnswer returns the streaming placeholder appended before the
// first fragment of an answer arrives.
func NewPendingAnswer() Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    SenderSystem,
		Streaming: true,
	}
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	out := m
	if m.Citations != nil {
		out.Citations = make([]Citation, len(m.Citations))
		copy(out.Citations, m.Citations)
	}
	return out
}
