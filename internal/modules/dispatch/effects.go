// README: Chat effects produced by a transition and executed after the order lock is released.
package dispatch

import (
	"context"

	"dishbee/internal/chat"
	"dishbee/internal/modules/order"
)

type chatOp int

const (
	opSend chatOp = iota
	opEdit
	opDelete
)

// target is a fully rendered chat call.
type target struct {
	chatID int64
	msgID  int
	text   string
	kb     chat.Keyboard
}

type effect struct {
	op  chatOp
	dst target
	// render, when set, builds the call at execution time from the latest committed order.
	render func(ctx context.Context, o *order.Order) (target, bool)
	// record stores the id of a sent message on the order.
	record func(o *order.Order, msgID int)
	// what/hint make a failure operator-visible; empty means best effort.
	what string
	hint string
}

func send(chatID int64, text string, kb chat.Keyboard) effect {
	return effect{op: opSend, dst: target{chatID: chatID, text: text, kb: kb}}
}

func edit(chatID int64, msgID int, text string, kb chat.Keyboard) effect {
	return effect{op: opEdit, dst: target{chatID: chatID, msgID: msgID, text: text, kb: kb}}
}

func del(chatID int64, msgID int) effect {
	return effect{op: opDelete, dst: target{chatID: chatID, msgID: msgID}}
}

func (e effect) recording(fn func(o *order.Order, msgID int)) effect {
	e.record = fn
	return e
}

func (e effect) critical(what, hint string) effect {
	e.what, e.hint = what, hint
	return e
}

func (e effect) lazy() bool { return e.render != nil }

// refresh re-renders an existing message from the latest state.
func refresh(fn func(o *order.Order) (target, bool)) effect {
	return effect{op: opEdit, render: func(_ context.Context, o *order.Order) (target, bool) {
		return fn(o)
	}}
}

func appendUnique(ids []int, id int) []int {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []int, id int) ([]int, bool) {
	for i, x := range ids {
		if x == id {
			return append(ids[:i:i], ids[i+1:]...), true
		}
	}
	return ids, false
}
