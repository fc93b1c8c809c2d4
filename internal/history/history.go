package history

import (
	"sync"

	"github.com/google/uuid"
)

const (
	SenderUser    = "You"
	SenderChatbot = "Chatbot"
)

type Entry struct {
	Sender  string
	Message string
}

// Transcript is the ephemeral message list of one interactive session.
type Transcript struct {
	mu      sync.RWMutex
	id      string
	entries []Entry
}

func NewTranscript() *Transcript {
	return &Transcript{id: uuid.NewString()}
}

func (t *Transcript) ID() string { return t.id }

func (t *Transcript) AppendUser(content string) {
	t.append(Entry{Sender: SenderUser, Message: content})
}

func (t *Transcript) AppendChatbot(content string) {
	t.append(Entry{Sender: SenderChatbot, Message: content})
}

func (t *Transcript) append(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

// Entries returns a copy of the transcript in order.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

