package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/alexanderramin/sitepilot/internal/wizard"
)

// Message is one queued outbound chat message.
type Message struct {
	Kind    string      `json:"kind"` // prompt, show or animation
	Text    string      `json:"text"`
	Asset   string      `json:"asset,omitempty"`
	Choices []ChoiceDTO `json:"choices,omitempty"`
	SentAt  time.Time   `json:"sent_at"`
}

// ChoiceDTO is a button; Command is the token to post back as the update's
// command.
type ChoiceDTO struct {
	Label   string `json:"label"`
	Command string `json:"command"`
}

// DefaultOutboxLimit bounds the messages kept per chat between polls.
const DefaultOutboxLimit = 200

// Outbox is a wizard.Transport that queues messages per chat until a client
// drains them. When a chat exceeds its limit the oldest messages are dropped.
type Outbox struct {
	mu    sync.Mutex
	chats map[string][]Message
	limit int
	now   func() time.Time
}

func NewOutbox(limit int) *Outbox {
	if limit < 1 {
		limit = DefaultOutboxLimit
	}
	return &Outbox{chats: make(map[string][]Message), limit: limit, now: time.Now}
}

func (o *Outbox) push(chatID string, m Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	m.SentAt = o.now().UTC()
	q := append(o.chats[chatID], m)
	if len(q) > o.limit {
		q = q[len(q)-o.limit:]
	}
	o.chats[chatID] = q
}

func (o *Outbox) Prompt(_ context.Context, chatID, text string, choices []wizard.Choice) error {
	dto := make([]ChoiceDTO, len(choices))
	for i, c := range choices {
		dto[i] = ChoiceDTO{Label: c.Label, Command: c.Command.Encode()}
	}
	o.push(chatID, Message{Kind: "prompt", Text: text, Choices: dto})
	return nil
}

func (o *Outbox) Show(_ context.Context, chatID, text string) error {
	o.push(chatID, Message{Kind: "show", Text: text})
	return nil
}

func (o *Outbox) ShowAnimation(_ context.Context, chatID, asset, caption string) error {
	o.push(chatID, Message{Kind: "animation", Text: caption, Asset: asset})
	return nil
}

// Drain returns and removes every queued message for chatID.
func (o *Outbox) Drain(chatID string) []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := o.chats[chatID]
	delete(o.chats, chatID)
	if q == nil {
		return []Message{}
	}
	return q
}

var _ wizard.Transport = (*Outbox)(nil)
