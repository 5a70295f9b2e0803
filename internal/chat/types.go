// Package chat implements the conversational subsystem of the board: durable
// per-project session files, the asynchronous assistant message lifecycle,
// and the startup recovery sweep.
package chat

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the lifecycle state of an assistant message. User messages carry
// no status; they are complete the moment they are written.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Terminal reports whether no further automatic transition may occur.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Message is one turn in a session. Content stays mutable for assistant
// messages until a terminal status is reached.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Status    Status    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Session is an ordered conversation thread scoped to one project.
type Session struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	TaskID    string     `json:"taskId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	Messages  []*Message `json:"messages"`
}

// Summary is the list-view projection of a session, without message bodies.
type Summary struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	CreatedAt     time.Time  `json:"createdAt"`
	MessageCount  int        `json:"messageCount"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
}

// sessionFile is the on-disk shape of data/chat-sessions/<projectID>.json.
type sessionFile struct {
	Sessions []*Session `json:"sessions"`
}

func (f *sessionFile) find(sessionID string) *Session {
	for _, s := range f.Sessions {
		if s.ID == sessionID {
			return s
		}
	}
	return nil
}

func (s *Session) find(messageID string) *Message {
	for _, m := range s.Messages {
		if m.ID == messageID {
			return m
		}
	}
	return nil
}
