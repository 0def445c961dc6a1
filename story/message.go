package story

import (
	"sync"
	"time"
)

// Message is one exchanged utterance. It is never mutated after Append.
type Message struct {
	Sender     RoleID    `json:"sender"`
	SenderName string    `json:"sender_name"`
	Recipient  RoleID    `json:"recipient"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier receives every appended message. Notify must not block.
type Notifier interface {
	Notify(Message)
}

// ConversationLog 按时间顺序记录所有角色之间的消息，只追加不修改。
type ConversationLog struct {
	mu       sync.RWMutex
	messages []Message
	notifier Notifier
}

func NewConversationLog(n Notifier) *ConversationLog {
	return &ConversationLog{notifier: n}
}

// Append stores m and forwards it to the notifier, if any.
func (l *ConversationLog) Append(m Message) {
	l.mu.Lock()
	l.messages = append(l.messages, m)
	n := l.notifier
	l.mu.Unlock()

	if n != nil {
		n.Notify(m)
	}
}

func (l *ConversationLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Snapshot returns a copy of the whole log.
func (l *ConversationLog) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Since returns a copy of the entries appended at or after index from.
func (l *ConversationLog) Since(from int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if from < 0 {
		from = 0
	}
	if from >= len(l.messages) {
		return []Message{}
	}
	out := make([]Message, len(l.messages)-from)
	copy(out, l.messages[from:])
	return out
}

// Tail returns a copy of at most the last n entries.
func (l *ConversationLog) Tail(n int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return tail(l.messages, n)
}

// reset drops every entry. Only a story reset calls it.
func (l *ConversationLog) reset() {
	l.mu.Lock()
	l.messages = nil
	l.mu.Unlock()
}

func tail(msgs []Message, n int) []Message {
	if n <= 0 {
		return []Message{}
	}
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
