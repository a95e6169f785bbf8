// README: Vendor group actions: answers to time requests and the details toggle.
package dispatch

import (
	"context"

	"dishbee/internal/callback"
	"dishbee/internal/modules/order"
	"dishbee/internal/types"
)

func (o *Orchestrator) vendorClicked(ctx context.Context, ev VendorClicked) Outcome {
	return o.mutate(ctx, ev.OrderID, ev.Kind()+":"+string(ev.Action), false, func(t *txn) error {
		v := ev.Vendor
		cur := t.cur
		if !cur.HasVendor(v) {
			return ignore("%s is not part of this order", v)
		}
		if code := t.arg(ev.Args, 0); code != o.r.Code(v) {
			return ignore("button belongs to vendor %s", code)
		}
		if cur.Status.Terminal() {
			return ignore("order is already %s", cur.Status)
		}

		if ev.Action == callback.Toggle {
			if cur.Refs.VendorExpanded == nil {
				cur.Refs.VendorExpanded = map[string]bool{}
			}
			cur.Refs.VendorExpanded[v] = !cur.Refs.VendorExpanded[v]
			t.touch()
			t.emit(o.refreshVendorPost(v))
			return nil
		}

		asked := cur.RequestedFor(v)
		if asked == "" {
			return ignore("no time was requested from %s", v)
		}
		if at := cur.ConfirmedTimes[v]; at != "" {
			return ignore("%s already confirmed %s", v, at)
		}
		switch cur.Status {
		case order.StatusTimeRequested, order.StatusPartiallyConfirmed:
		default:
			return ignore("order is %s", cur.Status)
		}

		switch ev.Action {
		case callback.Works:
			if asked == types.ASAP {
				return ignore("an ASAP request needs a concrete time")
			}
			return t.confirm(v, asked, false)

		case callback.Later:
			if asked == types.ASAP {
				return ignore("an ASAP request needs a concrete time")
			}
			text, kb := o.r.LaterPicker(cur, v)
			t.emit(edit(o.vendorChat(v), ev.MessageID, text, kb))

		case callback.LaterTime:
			at := t.arg(ev.Args, 1)
			if !types.ValidHHMM(at) {
				return ignore("invalid time %q", at)
			}
			return t.confirm(v, at, true)

		case callback.Prepare:
			at := t.arg(ev.Args, 1)
			if at == "" {
				text, kb := o.r.PreparePicker(cur, v, types.FormatHHMM(t.now))
				t.emit(edit(o.vendorChat(v), ev.MessageID, text, kb))
				return nil
			}
			if !types.ValidHHMM(at) {
				return ignore("invalid time %q", at)
			}
			return t.confirm(v, at, false)

		case callback.Wrong:
			t.emit(send(o.dispatch, o.r.VendorIssueNotice(cur, v), nil).
				critical("Forwarding the problem report from "+v, "Call the restaurant."))

		default:
			return ignore("%s is not a vendor action", ev.Action)
		}
		return nil
	})
}

// confirm commits vendor v's time and posts the assignment message once every vendor agreed.
func (t *txn) confirm(v, at string, later bool) error {
	cur := t.cur
	if cur.ConfirmedTimes == nil {
		cur.ConfirmedTimes = map[string]string{}
	}
	cur.ConfirmedTimes[v] = at
	if err := t.setStatus(cur.PhaseStatus()); err != nil {
		return err
	}
	t.touch()

	o := t.o
	if id := cur.Refs.VendorRequests[v]; id != 0 {
		t.emit(edit(o.vendorChat(v), id, o.r.VendorAnswered(cur, v), nil))
	}
	if later {
		t.emit(send(o.dispatch, o.r.VendorAnswerNotice(cur, v, at, true), nil))
	}
	if cur.Status == order.StatusConfirmed {
		t.clearEphemeral()
		t.emit(send(o.dispatch, o.r.AssignmentText(cur), o.r.AssignmentKeyboard(cur)).
			recording(func(rec *order.Order, msgID int) {
				if rec.Refs.DispatchAssign == 0 {
					rec.Refs.DispatchAssign = msgID
				}
			}).
			critical("Posting the assignment message", "Use the assign buttons on the order post."))
	}
	t.emit(o.refreshPrimary())
	return nil
}
