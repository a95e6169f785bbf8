// README: Renderer tests: titles, vendor posts, requests, courier CTA, pickers and lists.
package render

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dishbee/internal/callback"
	"dishbee/internal/config"
	"dishbee/internal/modules/order"
)

var loc = func() *time.Location {
	l, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		panic(err)
	}
	return l
}()

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	reg, err := config.NewRegistry(
		[]config.Restaurant{
			{Name: "Leckerolls", ChatID: -1, Phone: "+49851111"},
			{Name: "Kahaani", ChatID: -2},
			{Name: "Pommes Freunde", ChatID: -3},
		},
		[]config.Courier{{Name: "Alice", UserID: 111}, {Name: "Bob", UserID: 222}},
	)
	require.NoError(t, err)
	return New("dishbee", reg, loc)
}

func storefrontOrder() *order.Order {
	total := decimal.RequireFromString("12.50")
	tip := decimal.RequireFromString("2")
	return &order.Order{
		ID:          "1001",
		Source:      order.SourceStorefront,
		DisplayName: "01",
		Vendors:     []string{"Leckerolls"},
		Customer: order.Customer{
			Name:        "Max Mustermann",
			Phone:       "+4915112345678",
			AddressFull: "Ludwigstraße 12, 94032 Passau",
			Zip:         "94032",
		},
		Items:     map[string][]string{"Leckerolls": {"1 x Cinnamon Roll"}},
		Total:     &total,
		Tips:      &tip,
		CreatedAt: time.Date(2024, 6, 14, 17, 30, 0, 0, loc),
		Status:    order.StatusNew,
	}
}

func TestTitleStorefront(t *testing.T) {
	r := testRenderer(t)
	o := storefrontOrder()
	assert.Equal(t, "🔖 #01 - dishbee (LR)", r.Title(o))

	o.Vendors = []string{"Kahaani", "Pommes Freunde"}
	assert.Equal(t, "🔖 #01 - dishbee (KA+PF)", r.Title(o))
}

func TestTitlePhoto(t *testing.T) {
	r := testRenderer(t)
	o := storefrontOrder()
	o.Source = order.SourcePhoto
	assert.Equal(t, "🔖 Leckerolls", r.Title(o))
}

func TestDispatchText(t *testing.T) {
	r := testRenderer(t)
	o := storefrontOrder()
	o.Note = "Ring twice"
	o.PaymentMethod = "Cash on Delivery (COD)"
	text := r.DispatchText(o)

	assert.True(t, strings.HasPrefix(text, "🔖 #01 - dishbee (LR)\n👤 Max Mustermann\n"))
	assert.Contains(t, text, "🧭 [Ludwigstraße 12 (94032)](https://www.google.com/maps?q=Ludwigstra%C3%9Fe+12%2C+94032+Passau)")
	assert.Contains(t, text, "❕ Note: Ring twice")
	assert.Contains(t, text, "👍 Tip: 2.00€")
	assert.Contains(t, text, "⚠️ Cash on delivery: 12.50€")
	assert.Contains(t, text, "1 x Cinnamon Roll")
	assert.Contains(t, text, "Total: 12.50€")
	assert.Contains(t, text, "[+4915112345678](tel:+4915112345678)")
}

func TestDispatchTextGroupsMultiVendorItems(t *testing.T) {
	r := testRenderer(t)
	o := storefrontOrder()
	o.Vendors = []string{"Kahaani", "Pommes Freunde"}
	o.Items = map[string][]string{"Kahaani": {"1 x Dal"}, "Pommes Freunde": {"2 x Fries"}}
	o.ConfirmedTimes = map[string]string{"Kahaani": "18:00"}
	o.RequestedTimes = map[string]string{"Kahaani": "18:00", "Pommes Freunde": "ASAP"}
	text := r.DispatchText(o)
	assert.Contains(t, text, "🏠 Kahaani:\n1 x Dal\n🏠 Pommes Freunde:\n2 x Fries")
	assert.Contains(t, text, "✅ KA: 18:00")
	assert.Contains(t, text, "⏳ PF: ASAP?")
}

func TestEscapeUserText(t *testing.T) {
	r := testRenderer(t)
	o := storefrontOrder()
	o.Customer.Name = "max_power*"
	assert.Contains(t, r.DispatchText(o), `max\_power\*`)
}

func TestDispatchKeyboard(t *testing.T) {
	r := testRenderer(t)
	o := storefrontOrder()
	kb := r.DispatchKeyboard(o, true)
	assert.Equal(t, []string{"⚡ Asap", "🕒 Time picker", "🔗 Same time as", "🔢 Exact time", "🗑 Remove"}, kb.Labels())
	assert.Equal(t, "req_asap|1001", kb[0][0].Data)
	assert.Equal(t, "req_same|1001", kb[1][0].Data)

	kb = r.DispatchKeyboard(o, false)
	assert.Equal(t, []string{"⚡ Asap", "🕒 Time picker", "🔢 Exact time", "🗑 Remove"}, kb.Labels())

	o.Vendors = []string{"Kahaani", "Pommes Freunde"}
	kb = r.DispatchKeyboard(o, true)
	assert.Equal(t, []string{"Request KA", "Request PF", "🗑 Remove"}, kb.Labels())
	assert.Equal(t, "req_vendor|1001|KA", kb[0][0].Data)

	o.ConfirmedTimes = map[string]string{"Kahaani": "18:00"}
	o.Status = order.StatusPartiallyConfirmed
	assert.Equal(t, []string{"Request PF", "🗑 Remove"}, r.DispatchKeyboard(o, false).Labels())

	o.ConfirmedTimes["Pommes Freunde"] = "18:10"
	o.Status = order.StatusConfirmed
	assert.Equal(t, []string{"👈 Assign to myself", "👉 Assign to...", "🗑 Remove"}, r.DispatchKeyboard(o, false).Labels())
	o.Refs.DispatchAssign = 300
	assert.Equal(t, []string{"🗑 Remove"}, r.DispatchKeyboard(o, false).Labels())

	o.Status = order.StatusDelivered
	assert.Nil(t, r.DispatchKeyboard(o, false))
}

func TestVendorPostToggle(t *testing.T) {
	r := testRenderer(t)
	o := storefrontOrder()
	text, kb := r.VendorPost(o, "Leckerolls")
	assert.Equal(t, "Order 01\n1 x Cinnamon Roll", text)
	assert.NotContains(t, text, "Max")
	assert.Equal(t, "toggle|1001|LR", kb[0][0].Data)

	o.Refs.VendorExpanded = map[string]bool{"Leckerolls": true}
	text, kb = r.VendorPost(o, "Leckerolls")
	assert.Contains(t, text, "👤 Max Mustermann")
	assert.Contains(t, text, "⏰ Ordered at 17:30")
	assert.Contains(t, text, "Ludwigstraße 12, 94032 Passau")
	assert.Equal(t, "◂ Hide", kb[0][0].Label)
}

func TestVendorRequests(t *testing.T) {
	r := testRenderer(t)
	o := storefrontOrder()
	o.RequestedTimes = map[string]string{"Leckerolls": "ASAP"}
	text, kb := r.VendorRequest(o, "Leckerolls", nil)
	assert.Equal(t, "#01 ASAP?", text)
	assert.Equal(t, []string{"Will prepare at", "Something is wrong"}, kb.Labels())
	assert.Equal(t, "prepare|1001|LR|", kb[0][0].Data)

	o.RequestedTimes["Leckerolls"] = "18:00"
	text, kb = r.VendorRequest(o, "Leckerolls", nil)
	assert.Equal(t, "#01 at 18:00?", text)
	assert.Equal(t, []string{"Works", "Later at", "Something is wrong"}, kb.Labels())
}

func TestVendorRequestSameVendorPhrasing(t *testing.T) {
	r := testRenderer(t)
	src := storefrontOrder()
	o := storefrontOrder()
	o.ID, o.DisplayName = "1002", "02"
	o.RequestedTimes = map[string]string{"Leckerolls": "18:05"}

	text, _ := r.VendorRequest(o, "Leckerolls", src)
	assert.Equal(t, "Can you prepare #02 together with #01 at the same time 18:05?", text)

	src.Vendors = []string{"Kahaani"}
	text, _ = r.VendorRequest(o, "Leckerolls", src)
	assert.Equal(t, "#02 at 18:05?", text)
}

func TestPickersFromVendor(t *testing.T) {
	r := testRenderer(t)
	o := storefrontOrder()
	_, kb := r.PreparePicker(o, "Leckerolls", "17:40")
	assert.Equal(t, []string{"17:45", "17:50", "17:55", "18:00"}, kb.Labels())
	assert.Equal(t, "prepare|1001|LR|17:50", kb[0][1].Data)

	o.RequestedTimes = map[string]string{"Leckerolls": "18:00"}
	_, kb = r.LaterPicker(o, "Leckerolls")
	assert.Equal(t, []string{"18:05", "18:10", "18:15", "18:20"}, kb.Labels())
	tok, err := callback.Parse(kb[1][1].Data)
	require.NoError(t, err)
	assert.Equal(t, callback.LaterTime, tok.Action)
	assert.Equal(t, []string{"LR", "18:20"}, tok.Args)
}

func TestCourierKeyboard(t *testing.T) {
	r := testRenderer(t)
	o := storefrontOrder()
	o.Status = order.StatusAssigned
	o.AssignedTo = 111
	o.ConfirmedTimes = map[string]string{"Leckerolls": "18:10"}
	kb := r.CourierKeyboard(o)
	assert.Equal(t, []string{"☎️ Call customer", "🧭 Navigate", "⏰ Delay", "🍽 Call LR", "✅ Delivered"}, kb.Labels())

	text := r.CourierText(o)
	assert.True(t, strings.HasPrefix(text, "🚴 #01 - LR 18:10\n"))
	assert.Contains(t, text, "🍕 1 items")

	o.Status = order.StatusDelivered
	assert.Nil(t, r.CourierKeyboard(o))
}

func TestAssignmentPost(t *testing.T) {
	r := testRenderer(t)
	o := storefrontOrder()
	o.Status = order.StatusConfirmed
	o.ConfirmedTimes = map[string]string{"Leckerolls": "18:10"}
	assert.True(t, strings.HasPrefix(r.AssignmentText(o), "✅ #01 confirmed — LR 18:10"))
	assert.Equal(t, []string{"👈 Assign to myself", "👉 Assign to..."}, r.AssignmentKeyboard(o).Labels())

	_, picker := r.CourierPicker(o)
	assert.Equal(t, []string{"Alice", "Bob", "✖ Close"}, picker.Labels())
	assert.Equal(t, "assign_selected|1001|111", picker[0][0].Data)
}

func TestNotices(t *testing.T) {
	r := testRenderer(t)
	o := storefrontOrder()
	o.AssignedTo = 111
	assert.Equal(t, "✅ Order #01 was delivered.", r.DeliveredNotice(o))
	assert.Equal(t, "⏰ #01 delayed to 18:25 (courier Alice)", r.DelayNotice(o, "18:25"))
}

func TestExactPicker(t *testing.T) {
	now := time.Date(2024, 6, 14, 21, 40, 0, 0, loc)
	assert.Equal(t, []int{21, 22, 23}, ExactHours(now))
	assert.Equal(t, []string{"21:42", "21:45", "21:48", "21:51", "21:54", "21:57"}, ExactMinutes(21, now))
	assert.Len(t, ExactMinutes(22, now), 20)

	late := time.Date(2024, 6, 14, 23, 58, 0, 0, loc)
	assert.Empty(t, ExactHours(late))

	r := testRenderer(t)
	_, kb := r.MinutePicker(storefrontOrder(), "Leckerolls", 21, now)
	assert.Equal(t, "exact_selected|1001|LR|21:42", kb[0][0].Data)
	assert.Equal(t, "exact_back_hours|1001|LR", kb[len(kb)-1][0].Data)
}

func TestPlusSuggestionsWrapMidnight(t *testing.T) {
	assert.Equal(t, []string{"23:55", "00:00", "00:05", "00:10"}, PlusSuggestions("23:50"))
	assert.Nil(t, PlusSuggestions("ASAP"))
}

func TestTimePickerSmart(t *testing.T) {
	r := testRenderer(t)
	prior := storefrontOrder()
	o := storefrontOrder()
	o.ID, o.DisplayName = "1002", "02"
	now := time.Date(2024, 6, 14, 17, 40, 0, 0, loc)
	_, kb := r.TimePicker(o, "Leckerolls", now, &Smart{Source: prior, Base: "18:05"})

	labels := kb.Labels()
	assert.Equal(t, "+5 → 17:45", labels[0])
	assert.Equal(t, "#01 18:05 +5 → 18:10", labels[4])
	assert.Equal(t, "smart_time|1002|LR|18:10", kb[2][0].Data)
	assert.Equal(t, "🔢 Exact time", labels[len(labels)-2])
}

func TestSamePicker(t *testing.T) {
	r := testRenderer(t)
	src := storefrontOrder()
	src.ConfirmedTimes = map[string]string{"Leckerolls": "18:05"}
	o := storefrontOrder()
	o.ID = "1002"

	_, kb := r.SamePicker(o, "Leckerolls", []*order.Order{src})
	assert.Equal(t, "#01 - LR 18:05", kb[0][0].Label)
	assert.Equal(t, "same_selected|1002|LR|1001", kb[0][0].Data)

	text, kb := r.SamePicker(o, "Leckerolls", nil)
	assert.Equal(t, "No confirmed orders in the last hour.", text)
	assert.Equal(t, "no_recent|1002", kb[0][0].Data)
}

func TestLists(t *testing.T) {
	r := testRenderer(t)
	now := time.Date(2024, 6, 14, 19, 0, 0, 0, loc)

	a := storefrontOrder()
	a.Status = order.StatusAssigned
	a.AssignedTo = 222
	a.ConfirmedTimes = map[string]string{"Leckerolls": "18:30"}

	b := storefrontOrder()
	b.ID, b.DisplayName = "1002", "02"
	b.Vendors = []string{"Kahaani"}
	b.Customer.AddressFull = "Innstraße 3, 94032 Passau"
	b.Status = order.StatusConfirmed
	b.ConfirmedTimes = map[string]string{"Kahaani": "18:05"}

	c := storefrontOrder()
	c.ID = "1003"
	c.Status = order.StatusDelivered
	c.AssignedTo = 111
	c.ConfirmedTimes = map[string]string{"Leckerolls": "17:00"}

	old := storefrontOrder()
	old.ID = "0999"
	old.CreatedAt = now.AddDate(0, 0, -1)
	old.Status = order.StatusConfirmed
	old.ConfirmedTimes = map[string]string{"Leckerolls": "12:00"}

	d := storefrontOrder()
	d.ID = "1004"
	d.Status = order.StatusAssigned
	d.AssignedTo = 111
	d.ConfirmedTimes = map[string]string{"Leckerolls": "19:30"}

	all := []*order.Order{a, b, c, old, d}
	assert.Equal(t, "📅 Scheduled orders\n18:05 - Innstraße 3 - KA\n18:30 - Ludwigstraße 12 - LR\n19:30 - Ludwigstraße 12 - LR",
		r.Scheduled(all, now))
	assert.Equal(t, "🚴 Assigned orders\nLR - 19:30 - Ludwigstraße 12 | Alice\nLR - 18:30 - Ludwigstraße 12 | Bob",
		r.Assigned(all))
	assert.Equal(t, "📅 No scheduled orders.", r.Scheduled(nil, now))
}

func TestScheduledAcrossMidnight(t *testing.T) {
	r := testRenderer(t)
	now := time.Date(2024, 6, 14, 23, 30, 0, 0, loc)

	late := storefrontOrder()
	late.ID = "1005"
	late.CreatedAt = time.Date(2024, 6, 14, 23, 20, 0, 0, loc)
	late.Status = order.StatusConfirmed
	late.ConfirmedTimes = map[string]string{"Leckerolls": "00:05"}

	early := storefrontOrder()
	early.ID = "1006"
	early.Vendors = []string{"Kahaani"}
	early.CreatedAt = time.Date(2024, 6, 14, 23, 10, 0, 0, loc)
	early.Status = order.StatusConfirmed
	early.ConfirmedTimes = map[string]string{"Kahaani": "23:50"}

	assert.Equal(t, "📅 Scheduled orders\n23:50 - Ludwigstraße 12 - KA\n00:05 - Ludwigstraße 12 - LR",
		r.Scheduled([]*order.Order{late, early}, now))
}
