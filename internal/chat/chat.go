// README: Chat gateway contract and keyboard model shared by renderer and orchestrator.
package chat

import (
	"context"
	"errors"
)

// ErrPermanent marks a failure retrying cannot fix (bad request, message gone, bot blocked).
var ErrPermanent = errors.New("chat: permanent failure")

// Button is either a callback button (Data) or a link button (URL).
type Button struct {
	Label string
	Data  string
	URL   string
}

type Row []Button

// Keyboard is rows of inline buttons. A nil keyboard removes buttons on edit.
type Keyboard []Row

// Gateway is the outbound chat API.
type Gateway interface {
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	// Answer acknowledges a callback query, optionally with a short toast.
	Answer(ctx context.Context, callbackID, text string) error
}

// Buttons returns every callback data string on the keyboard, row by row.
func (k Keyboard) Buttons() []Button {
	var out []Button
	for _, row := range k {
		out = append(out, row...)
	}
	return out
}

// Labels flattens button labels, for assertions and logs.
func (k Keyboard) Labels() []string {
	var out []string
	for _, b := range k.Buttons() {
		out = append(out, b.Label)
	}
	return out
}
