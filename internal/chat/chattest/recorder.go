// README: In-memory chat gateway that records calls and can inject failures.
package chattest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"dishbee/internal/chat"
)

type Op string

const (
	OpSend   Op = "send"
	OpEdit   Op = "edit"
	OpDelete Op = "delete"
	OpAnswer Op = "answer"
)

type Call struct {
	Op        Op
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  chat.Keyboard
}

// Message is the current content of a live message.
type Message struct {
	ChatID   int64
	ID       int
	Text     string
	Keyboard chat.Keyboard
}

// FailFunc decides whether a call fails; returning nil lets it through.
type FailFunc func(c Call) error

type Recorder struct {
	mu       sync.Mutex
	nextID   int
	calls    []Call
	messages map[int]*Message
	fail     FailFunc
}

func NewRecorder() *Recorder {
	return &Recorder{nextID: 100, messages: map[int]*Message{}}
}

// FailWhen installs a failure injector; nil clears it.
func (r *Recorder) FailWhen(f FailFunc) {
	r.mu.Lock()
	r.fail = f
	r.mu.Unlock()
}

func (r *Recorder) record(c Call) error {
	r.calls = append(r.calls, c)
	if r.fail != nil {
		if err := r.fail(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) Send(_ context.Context, chatID int64, text string, kb chat.Keyboard) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Op: OpSend, ChatID: chatID, Text: text, Keyboard: kb}); err != nil {
		return 0, err
	}
	r.nextID++
	r.calls[len(r.calls)-1].MessageID = r.nextID
	r.messages[r.nextID] = &Message{ChatID: chatID, ID: r.nextID, Text: text, Keyboard: kb}
	return r.nextID, nil
}

func (r *Recorder) Edit(_ context.Context, chatID int64, messageID int, text string, kb chat.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Op: OpEdit, ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb}); err != nil {
		return err
	}
	m, ok := r.messages[messageID]
	if !ok || m.ChatID != chatID {
		return fmt.Errorf("%w: message %d not found", chat.ErrPermanent, messageID)
	}
	m.Text = text
	m.Keyboard = kb
	return nil
}

func (r *Recorder) Delete(_ context.Context, chatID int64, messageID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(Call{Op: OpDelete, ChatID: chatID, MessageID: messageID}); err != nil {
		return err
	}
	delete(r.messages, messageID)
	return nil
}

func (r *Recorder) Answer(_ context.Context, callbackID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(Call{Op: OpAnswer, Text: text})
}

// Calls returns a copy of every recorded call.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Reset forgets recorded calls but keeps live messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

// Sent returns the send calls made to chatID.
func (r *Recorder) Sent(chatID int64) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == OpSend && c.ChatID == chatID {
			out = append(out, c)
		}
	}
	return out
}

// LastSent returns the latest send to chatID.
func (r *Recorder) LastSent(chatID int64) (Call, bool) {
	sent := r.Sent(chatID)
	if len(sent) == 0 {
		return Call{}, false
	}
	return sent[len(sent)-1], true
}

func (r *Recorder) Message(id int) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return Message{}, false
	}
	return *m, true
}

// Live returns the current messages in chatID.
func (r *Recorder) Live(chatID int64) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.messages {
		if m.ChatID == chatID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count counts calls of op, optionally filtered by chat (0 matches all chats).
func (r *Recorder) Count(op Op, chatID int64) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Op == op && (chatID == 0 || c.ChatID == chatID) {
			n++
		}
	}
	return n
}

// FindButton returns the callback data of the first button whose label contains label.
func FindButton(kb chat.Keyboard, label string) (string, bool) {
	for _, b := range kb.Buttons() {
		if strings.Contains(b.Label, label) {
			return b.Data, true
		}
	}
	return "", false
}
