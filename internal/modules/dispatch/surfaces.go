// README: Shared helpers for resolving vendors and keeping the mirrored chat messages in sync.
package dispatch

import (
	"time"

	"dishbee/internal/chat"
	"dishbee/internal/modules/order"
	"dishbee/internal/render"
	"dishbee/internal/types"
)

// vendorByCode maps a callback vendor code back to one of the order's vendors.
func (t *txn) vendorByCode(code string) (string, error) {
	for _, v := range t.cur.Vendors {
		if t.o.r.Code(v) == code {
			return v, nil
		}
	}
	return "", ignore("vendor %s is not part of this order", code)
}

// vendorArg resolves args[0] as a vendor code, or the only vendor of a single-vendor order.
func (t *txn) vendorArg(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return t.vendorByCode(args[0])
	}
	if t.cur.MultiVendor() {
		return "", ignore("pick a restaurant first")
	}
	return t.cur.Vendors[0], nil
}

func (t *txn) arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func (o *Orchestrator) vendorChat(v string) int64 {
	r, ok := o.reg.Restaurant(v)
	if !ok {
		return 0
	}
	return r.ChatID
}

// showPicker edits the clicked submenu in place, or opens a new one below the primary post.
func (t *txn) showPicker(clicked int, text string, kb chat.Keyboard) {
	for _, id := range t.cur.Refs.DispatchEphemeral {
		if id == clicked {
			t.emit(edit(t.o.dispatch, clicked, text, kb))
			return
		}
	}
	t.clearEphemeral()
	t.emit(send(t.o.dispatch, text, kb).recording(func(o *order.Order, msgID int) {
		o.Refs.DispatchEphemeral = appendUnique(o.Refs.DispatchEphemeral, msgID)
	}))
}

// clearEphemeral deletes every open dispatch submenu of the order.
func (t *txn) clearEphemeral() {
	if len(t.cur.Refs.DispatchEphemeral) == 0 {
		return
	}
	for _, id := range t.cur.Refs.DispatchEphemeral {
		t.emit(del(t.o.dispatch, id))
	}
	t.cur.Refs.DispatchEphemeral = nil
	t.touch()
}

func (t *txn) dropEphemeral(msgID int) {
	t.emit(del(t.o.dispatch, msgID))
	if ids, ok := removeID(t.cur.Refs.DispatchEphemeral, msgID); ok {
		t.cur.Refs.DispatchEphemeral = ids
		t.touch()
	}
}

func (t *txn) clearCourierTemps(courier int64) {
	if len(t.cur.Refs.CourierEphemeral) == 0 {
		return
	}
	for _, id := range t.cur.Refs.CourierEphemeral {
		t.emit(del(courier, id))
	}
	t.cur.Refs.CourierEphemeral = nil
	t.touch()
}

// courierTemp sends a temporary info message to the assigned courier.
func (t *txn) courierTemp(text string, kb chat.Keyboard) {
	t.emit(send(t.cur.AssignedTo, text, kb).recording(func(o *order.Order, msgID int) {
		o.Refs.CourierEphemeral = appendUnique(o.Refs.CourierEphemeral, msgID)
	}))
}

func (o *Orchestrator) refreshPrimary() effect {
	return refresh(func(cur *order.Order) (target, bool) {
		return target{
			chatID: o.dispatch,
			msgID:  cur.Refs.DispatchPrimary,
			text:   o.r.DispatchText(cur),
			kb:     o.primaryKeyboard(cur, o.clock.Now()),
		}, cur.Refs.DispatchPrimary != 0
	})
}

// primaryKeyboard offers "Same time as" on a single-vendor primary only while a candidate exists.
func (o *Orchestrator) primaryKeyboard(cur *order.Order, now time.Time) chat.Keyboard {
	same := len(cur.Vendors) == 1 && len(o.sameCandidates(cur, cur.Vendors[0], now)) > 0
	return o.r.DispatchKeyboard(cur, same)
}

func (o *Orchestrator) refreshAssignment() effect {
	return refresh(func(cur *order.Order) (target, bool) {
		return target{
			chatID: o.dispatch,
			msgID:  cur.Refs.DispatchAssign,
			text:   o.r.AssignmentText(cur),
			kb:     o.r.AssignmentKeyboard(cur),
		}, cur.Refs.DispatchAssign != 0
	})
}

func (o *Orchestrator) refreshCourierDM() effect {
	return refresh(func(cur *order.Order) (target, bool) {
		return target{
			chatID: cur.AssignedTo,
			msgID:  cur.Refs.CourierDM,
			text:   o.r.CourierText(cur),
			kb:     o.r.CourierKeyboard(cur),
		}, cur.Refs.CourierDM != 0 && cur.AssignedTo != 0
	})
}

func (o *Orchestrator) refreshVendorPost(v string) effect {
	return refresh(func(cur *order.Order) (target, bool) {
		text, kb := o.r.VendorPost(cur, v)
		id := cur.Refs.VendorPosts[v]
		return target{chatID: o.vendorChat(v), msgID: id, text: text, kb: kb}, id != 0
	})
}

// sendVendorPost posts the collapsed order summary to a vendor group once.
func (o *Orchestrator) sendVendorPost(cur *order.Order, v string) effect {
	text, kb := o.r.VendorPost(cur, v)
	return send(o.vendorChat(v), text, kb).
		recording(func(rec *order.Order, msgID int) {
			if rec.Refs.VendorPosts == nil {
				rec.Refs.VendorPosts = map[string]int{}
			}
			if rec.Refs.VendorPosts[v] == 0 {
				rec.Refs.VendorPosts[v] = msgID
			}
		}).
		critical("Posting the order to "+v, "Requesting a time from "+v+" posts it again.")
}

// sameTime is the time a "same time as" request copies from src for vendor v.
func sameTime(src *order.Order, v string) string {
	if t := src.ConfirmedTimes[v]; t != "" {
		return t
	}
	return src.ConfirmedTime()
}

// sameCandidates lists other open orders created within the last hour that already have a time.
func (o *Orchestrator) sameCandidates(cur *order.Order, v string, now time.Time) []*order.Order {
	all := o.store.List()
	var out []*order.Order
	for i := len(all) - 1; i >= 0 && len(out) < maxSameCandidates; i-- {
		c := all[i]
		if c.ID == cur.ID || c.Status.Terminal() {
			continue
		}
		if now.Sub(c.CreatedAt) > sameWindow {
			continue
		}
		if sameTime(c, v) == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// smartFor finds today's most recent earlier order from the same vendor with a confirmed time.
func (o *Orchestrator) smartFor(cur *order.Order, v string, now time.Time) *render.Smart {
	day := types.StartOfDay(now)
	all := o.store.List()
	for i := len(all) - 1; i >= 0; i-- {
		c := all[i]
		if c.ID == cur.ID || c.Status == order.StatusRemoved || !c.HasVendor(v) {
			continue
		}
		if c.CreatedAt.Before(day) || c.CreatedAt.After(cur.CreatedAt) {
			continue
		}
		if t := c.ConfirmedTimes[v]; t != "" {
			return &render.Smart{Source: c, Base: t}
		}
	}
	return nil
}

const (
	sameWindow        = time.Hour
	maxSameCandidates = 6
)
