// README: Dispatch group actions: time requests, submenus, assignment and removal.
package dispatch

import (
	"context"
	"strconv"

	"dishbee/internal/callback"
	"dishbee/internal/modules/order"
	"dishbee/internal/types"
)

func (o *Orchestrator) operatorClicked(ctx context.Context, ev OperatorClicked) Outcome {
	return o.mutate(ctx, ev.OrderID, ev.Kind()+":"+string(ev.Action), true, func(t *txn) error {
		if t.cur.Status.Terminal() {
			return ignore("order is already %s", t.cur.Status)
		}
		r := o.r
		switch ev.Action {
		case callback.ReqVendor:
			v, err := t.vendorArg(ev.Args)
			if err != nil {
				return err
			}
			if err := t.requestable(v); err != nil {
				return err
			}
			text, kb := r.VendorMenu(t.cur, v, len(o.sameCandidates(t.cur, v, t.now)) > 0)
			t.showPicker(ev.MessageID, text, kb)

		case callback.ReqAsap, callback.VendorAsap:
			v, err := t.vendorArg(ev.Args)
			if err != nil {
				return err
			}
			return t.request(v, types.ASAP, nil)

		case callback.ReqTime, callback.VendorTime:
			v, err := t.vendorArg(ev.Args)
			if err != nil {
				return err
			}
			if err := t.requestable(v); err != nil {
				return err
			}
			text, kb := r.TimePicker(t.cur, v, t.now, o.smartFor(t.cur, v, t.now))
			t.showPicker(ev.MessageID, text, kb)

		case callback.ReqSame, callback.VendorSame:
			v, err := t.vendorArg(ev.Args)
			if err != nil {
				return err
			}
			if err := t.requestable(v); err != nil {
				return err
			}
			text, kb := r.SamePicker(t.cur, v, o.sameCandidates(t.cur, v, t.now))
			t.showPicker(ev.MessageID, text, kb)

		case callback.ReqExact, callback.VendorExact, callback.ExactBackHours:
			v, err := t.vendorArg(ev.Args)
			if err != nil {
				return err
			}
			if err := t.requestable(v); err != nil {
				return err
			}
			text, kb := r.HourPicker(t.cur, v, t.now)
			t.showPicker(ev.MessageID, text, kb)

		case callback.ExactHour:
			v, err := t.vendorArg(ev.Args)
			if err != nil {
				return err
			}
			if err := t.requestable(v); err != nil {
				return err
			}
			hour, err := strconv.Atoi(t.arg(ev.Args, 1))
			if err != nil || hour < 0 || hour > 23 {
				return ignore("invalid hour %q", t.arg(ev.Args, 1))
			}
			text, kb := r.MinutePicker(t.cur, v, hour, t.now)
			t.showPicker(ev.MessageID, text, kb)

		case callback.TimePlus, callback.SmartTime, callback.ExactSelected:
			v, err := t.vendorArg(ev.Args)
			if err != nil {
				return err
			}
			at := t.arg(ev.Args, 1)
			if !types.ValidHHMM(at) {
				return ignore("invalid time %q", at)
			}
			return t.request(v, at, nil)

		case callback.SameSelected:
			v, err := t.vendorArg(ev.Args)
			if err != nil {
				return err
			}
			src, err := o.store.Get(t.arg(ev.Args, 1))
			if err != nil {
				return ignore("the chosen order no longer exists")
			}
			at := sameTime(src, v)
			if at == "" {
				return ignore("%s has no confirmed time yet", src.Label())
			}
			return t.request(v, at, src)

		case callback.ExactHide, callback.NoRecent:
			t.dropEphemeral(ev.MessageID)

		case callback.AssignSelf:
			return t.assign(ev.Actor)

		case callback.AssignTo:
			if t.cur.Status != order.StatusConfirmed && t.cur.Status != order.StatusAssigned {
				return ignore("not every restaurant confirmed yet")
			}
			text, kb := r.CourierPicker(t.cur)
			t.showPicker(ev.MessageID, text, kb)

		case callback.AssignSelected:
			id, err := strconv.ParseInt(t.arg(ev.Args, 0), 10, 64)
			if err != nil {
				return ignore("invalid courier %q", t.arg(ev.Args, 0))
			}
			return t.assign(id)

		case callback.Remove:
			return t.remove()

		default:
			return ignore("%s is not a dispatch action", ev.Action)
		}
		return nil
	})
}

// requestable reports whether v may still be asked for a time.
func (t *txn) requestable(v string) error {
	switch t.cur.Status {
	case order.StatusNew, order.StatusTimeRequested, order.StatusPartiallyConfirmed:
	default:
		return ignore("times can no longer be requested (order is %s)", t.cur.Status)
	}
	if at := t.cur.ConfirmedTimes[v]; at != "" {
		return ignore("%s already confirmed %s", v, at)
	}
	return nil
}

// request records the ask for vendor v and sends it to the vendor group, replacing
// an earlier unanswered request message.
func (t *txn) request(v, at string, src *order.Order) error {
	if err := t.requestable(v); err != nil {
		return err
	}
	cur := t.cur
	if cur.RequestedTimes == nil {
		cur.RequestedTimes = map[string]string{}
	}
	cur.RequestedTimes[v] = at
	cur.RequestedTime = at
	if src != nil {
		if cur.SameAs == nil {
			cur.SameAs = map[string]string{}
		}
		cur.SameAs[v] = src.ID
	} else {
		delete(cur.SameAs, v)
	}
	if err := t.setStatus(cur.PhaseStatus()); err != nil {
		return err
	}
	t.touch()
	t.clearEphemeral()

	o := t.o
	chatID := o.vendorChat(v)
	if cur.Refs.VendorPosts[v] == 0 {
		t.emit(o.sendVendorPost(cur, v))
	}
	if old := cur.Refs.VendorRequests[v]; old != 0 {
		t.emit(del(chatID, old))
		delete(cur.Refs.VendorRequests, v)
	}
	text, kb := o.r.VendorRequest(cur, v, src)
	t.emit(
		send(chatID, text, kb).
			recording(func(rec *order.Order, msgID int) {
				if rec.Refs.VendorRequests == nil {
					rec.Refs.VendorRequests = map[string]int{}
				}
				rec.Refs.VendorRequests[v] = msgID
			}).
			critical("Sending the time request to "+v, "Request the time again to re-send it."),
		o.refreshPrimary(),
	)
	return nil
}

// assign hands a confirmed order to courier, taking it away from a previous one.
func (t *txn) assign(courier int64) error {
	cur := t.cur
	if cur.Status != order.StatusConfirmed && cur.Status != order.StatusAssigned {
		return ignore("not every restaurant confirmed yet")
	}
	c, ok := t.o.reg.Courier(courier)
	if !ok {
		return ignore("user %d is not an authorized courier", courier)
	}
	if cur.AssignedTo == courier && cur.Refs.CourierDM != 0 {
		return ignore("already assigned to %s", c.Name)
	}

	o := t.o
	prev, prevDM := cur.AssignedTo, cur.Refs.CourierDM
	if prev != 0 && prev != courier {
		if prevDM != 0 {
			t.emit(edit(prev, prevDM, o.r.CourierReassigned(cur), nil))
		}
		t.clearCourierTemps(prev)
	}
	cur.AssignedTo = courier
	cur.Refs.CourierDM = 0
	if err := t.setStatus(order.StatusAssigned); err != nil {
		return err
	}
	t.touch()
	t.clearEphemeral()

	t.emit(
		send(courier, o.r.CourierText(cur), o.r.CourierKeyboard(cur)).
			recording(func(rec *order.Order, msgID int) {
				if rec.AssignedTo == courier {
					rec.Refs.CourierDM = msgID
				}
			}).
			critical("Sending the order to "+c.Name, "Assign the order again to re-send it."),
		o.refreshPrimary(),
		o.refreshAssignment(),
	)
	return nil
}

// remove cancels the order on every surface that mirrors it.
func (t *txn) remove() error {
	cur := t.cur
	if err := t.setStatus(order.StatusRemoved); err != nil {
		return err
	}
	o := t.o
	t.clearEphemeral()
	for _, v := range cur.Vendors {
		if id := cur.Refs.VendorRequests[v]; id != 0 {
			t.emit(edit(o.vendorChat(v), id, o.r.VendorCancelled(cur), nil))
		}
		t.emit(o.refreshVendorPost(v))
	}
	if cur.AssignedTo != 0 {
		if cur.Refs.CourierDM != 0 {
			t.emit(edit(cur.AssignedTo, cur.Refs.CourierDM, o.r.CourierRemoved(cur), nil))
		}
		t.clearCourierTemps(cur.AssignedTo)
	}
	t.emit(
		send(o.dispatch, o.r.RemovedNotice(cur), nil),
		o.refreshPrimary(),
		o.refreshAssignment(),
	)
	return nil
}
