// README: Order model tests (transition table, derived status, clone, codec round-trip).
package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}

func sampleOrder(t *testing.T) *Order {
	loc := berlin(t)
	created := time.Date(2024, 6, 14, 17, 30, 0, 0, loc)
	total := decimal.RequireFromString("12.50")
	o := &Order{
		ID:          "1001",
		Source:      SourceStorefront,
		DisplayName: "01",
		Vendors:     []string{"Leckerolls"},
		Customer: Customer{
			Name:        "Max Mustermann",
			Phone:       "+4915112345678",
			AddressFull: "Ludwigstraße 12, 94032 Passau",
			Zip:         "94032",
		},
		Items:     map[string][]string{"Leckerolls": {"1 x Cinnamon Roll"}},
		Total:     &total,
		CreatedAt: created,
		Refs:      MessageRefs{DispatchPrimary: 10, VendorPosts: map[string]int{"Leckerolls": 20}},
	}
	o.SetStatus(StatusNew, created)
	return o
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusNew, StatusTimeRequested, true},
		{StatusTimeRequested, StatusConfirmed, true},
		{StatusTimeRequested, StatusPartiallyConfirmed, true},
		{StatusPartiallyConfirmed, StatusConfirmed, true},
		{StatusConfirmed, StatusAssigned, true},
		{StatusAssigned, StatusAssigned, true},
		{StatusAssigned, StatusDelivered, true},
		{StatusNew, StatusRemoved, true},
		{StatusAssigned, StatusRemoved, true},
		// invalid
		{StatusNew, StatusConfirmed, false},
		{StatusNew, StatusAssigned, false},
		{StatusConfirmed, StatusDelivered, false},
		{StatusDelivered, StatusAssigned, false},
		{StatusDelivered, StatusRemoved, false},
		{StatusRemoved, StatusNew, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestPhaseStatus(t *testing.T) {
	o := sampleOrder(t)
	o.Vendors = []string{"Kahaani", "Pommes Freunde"}
	assert.Equal(t, StatusNew, o.PhaseStatus())

	o.RequestedTimes = map[string]string{"Kahaani": "18:00"}
	assert.Equal(t, StatusTimeRequested, o.PhaseStatus())

	o.ConfirmedTimes = map[string]string{"Kahaani": "18:00"}
	assert.Equal(t, StatusPartiallyConfirmed, o.PhaseStatus())
	assert.Equal(t, "", o.ConfirmedTime())
	assert.Equal(t, []string{"Pommes Freunde"}, o.UnconfirmedVendors())

	o.ConfirmedTimes["Pommes Freunde"] = "18:10"
	assert.Equal(t, StatusConfirmed, o.PhaseStatus())
	assert.Equal(t, "18:10", o.ConfirmedTime())
}

func TestConfirmedTimeAcrossMidnight(t *testing.T) {
	loc := berlin(t)
	o := sampleOrder(t)
	o.CreatedAt = time.Date(2024, 6, 14, 23, 40, 0, 0, loc)
	o.Vendors = []string{"Kahaani", "Pommes Freunde"}
	o.ConfirmedTimes = map[string]string{"Kahaani": "23:55", "Pommes Freunde": "00:05"}
	assert.Equal(t, "00:05", o.ConfirmedTime())
	assert.True(t, o.TimeAt("00:05").Equal(time.Date(2024, 6, 15, 0, 5, 0, 0, loc)))
	assert.True(t, o.TimeAt("bad").IsZero())
}

func TestSetStatusAppendsHistoryOnce(t *testing.T) {
	o := sampleOrder(t)
	at := o.CreatedAt.Add(time.Minute)
	o.SetStatus(StatusTimeRequested, at)
	o.SetStatus(StatusTimeRequested, at)
	require.Len(t, o.StatusHistory, 2)
	assert.Equal(t, StatusTimeRequested, o.StatusHistory[1].Status)
}

func TestCloneIsDeep(t *testing.T) {
	o := sampleOrder(t)
	o.ConfirmedTimes = map[string]string{"Leckerolls": "18:00"}
	c := o.Clone()
	c.ConfirmedTimes["Leckerolls"] = "19:00"
	c.Items["Leckerolls"][0] = "changed"
	c.Refs.VendorPosts["Leckerolls"] = 99
	*c.Total = decimal.NewFromInt(1)

	assert.Equal(t, "18:00", o.ConfirmedTimes["Leckerolls"])
	assert.Equal(t, "1 x Cinnamon Roll", o.Items["Leckerolls"][0])
	assert.Equal(t, 20, o.Refs.VendorPosts["Leckerolls"])
	assert.Equal(t, "12.5", o.Total.String())
}

func TestItemCount(t *testing.T) {
	o := sampleOrder(t)
	o.Items = map[string][]string{"A": {"2 x Burger", "Fries"}, "B": {"3 x Cola"}}
	assert.Equal(t, 6, o.ItemCount())
	o.ProductCount = 4
	assert.Equal(t, 4, o.ItemCount())
}

func TestRoundTripKeepsTimezone(t *testing.T) {
	loc := berlin(t)
	o := sampleOrder(t)
	o.ConfirmedTimes = map[string]string{"Leckerolls": "18:10"}
	o.RequestedTimes = map[string]string{"Leckerolls": "ASAP"}
	o.SetStatus(StatusConfirmed, o.CreatedAt.Add(5*time.Minute))

	blob, err := Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"created_at":"2024-06-14T17:30:00+02:00"`)

	back, err := Unmarshal(blob, loc)
	require.NoError(t, err)
	assert.Equal(t, loc, back.CreatedAt.Location())
	assert.True(t, o.CreatedAt.Equal(back.CreatedAt))
	assert.Equal(t, o.CreatedAt.String(), back.CreatedAt.String())
	require.Len(t, back.StatusHistory, 2)
	assert.Equal(t, loc, back.StatusHistory[1].At.Location())
	assert.True(t, o.Total.Equal(*back.Total))
	assert.Equal(t, o.Items, back.Items)
	assert.Equal(t, o.Refs, back.Refs)
	assert.Equal(t, o.ConfirmedTimes, back.ConfirmedTimes)
	require.NoError(t, back.Validate())
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte("{"), time.UTC)
	require.Error(t, err)
	_, err = Unmarshal([]byte(`{"status":"new"}`), time.UTC)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	o := sampleOrder(t)
	require.NoError(t, o.Validate())

	o.SetStatus(StatusConfirmed, o.CreatedAt)
	require.Error(t, o.Validate(), "confirmed without confirmed times")

	o.ConfirmedTimes = map[string]string{"Leckerolls": "18:00"}
	require.NoError(t, o.Validate())

	o.SetStatus(StatusAssigned, o.CreatedAt)
	require.Error(t, o.Validate(), "assigned without courier")
	o.AssignedTo = 111
	require.NoError(t, o.Validate())
}
