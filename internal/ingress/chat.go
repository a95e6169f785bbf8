// README: Chat updates: callback queries and text commands become typed orchestrator events.
package ingress

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dishbee/internal/callback"
	"dishbee/internal/modules/dispatch"
)

// ErrUnsupported marks updates the coordinator does not act on.
var ErrUnsupported = errors.New("ingress: unsupported update")

// Inbound is a decoded chat update. CallbackID is set for button presses, even
// when decoding fails, so the press can still be acknowledged.
type Inbound struct {
	Event      dispatch.Event
	CallbackID string
}

func (d *Decoder) Update(u tgbotapi.Update) (Inbound, error) {
	switch {
	case u.CallbackQuery != nil:
		return d.callbackQuery(u.CallbackQuery)
	case u.Message != nil:
		return d.message(u.Message)
	}
	return Inbound{}, ErrUnsupported
}

func (d *Decoder) message(m *tgbotapi.Message) (Inbound, error) {
	if m.Chat == nil || m.Chat.ID != d.dispatch || !m.IsCommand() {
		return Inbound{}, ErrUnsupported
	}
	cmd := "/" + m.Command()
	switch cmd {
	case dispatch.CommandScheduled, dispatch.CommandAssigned:
		return Inbound{Event: dispatch.ListRequested{Command: cmd}}, nil
	}
	return Inbound{}, ErrUnsupported
}

func (d *Decoder) callbackQuery(q *tgbotapi.CallbackQuery) (Inbound, error) {
	in := Inbound{CallbackID: q.ID}
	if q.Message == nil || q.Message.Chat == nil || q.From == nil {
		return in, ErrUnsupported
	}
	tok, err := callback.Parse(q.Data)
	if err != nil {
		return in, err
	}

	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID
	surface, vendor, err := d.surface(chatID, q.From.ID, q.Message.Chat.IsPrivate())
	if err != nil {
		return in, err
	}
	if surface != tok.Surface() {
		return in, fmt.Errorf("%w: %s button pressed in %s chat", ErrValidation, tok.Action, surface)
	}

	switch surface {
	case callback.SurfaceDispatch:
		in.Event = dispatch.OperatorClicked{
			OrderID: tok.OrderID, Action: tok.Action, Args: tok.Args, Actor: q.From.ID, MessageID: msgID,
		}
	case callback.SurfaceVendor:
		in.Event = dispatch.VendorClicked{
			OrderID: tok.OrderID, Vendor: vendor, Action: tok.Action, Args: tok.Args, MessageID: msgID,
		}
	case callback.SurfaceCourier:
		in.Event = dispatch.CourierClicked{
			OrderID: tok.OrderID, Action: tok.Action, Args: tok.Args, CourierID: q.From.ID, MessageID: msgID,
		}
	}
	return in, nil
}

// surface identifies where a button was pressed from the chat id and the presser.
func (d *Decoder) surface(chatID, userID int64, private bool) (callback.Surface, string, error) {
	if chatID == d.dispatch {
		return callback.SurfaceDispatch, "", nil
	}
	if rest, ok := d.reg.RestaurantByChat(chatID); ok {
		return callback.SurfaceVendor, rest.Name, nil
	}
	if private && chatID == userID {
		if _, ok := d.reg.Courier(userID); ok {
			return callback.SurfaceCourier, "", nil
		}
	}
	return "", "", fmt.Errorf("%w: button from unknown chat %d", ErrValidation, chatID)
}

// Reason is the short text used to acknowledge a press that could not be decoded.
func Reason(err error) string {
	switch {
	case errors.Is(err, callback.ErrMalformed), errors.Is(err, callback.ErrUnknownAction):
		return "This button is no longer supported."
	case errors.Is(err, ErrValidation):
		return "This button does not belong here."
	default:
		return ""
	}
}
