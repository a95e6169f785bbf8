// README: Tests for HH:MM arithmetic, day anchoring and money parsing.
package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHHMM(t *testing.T) {
	cases := []struct {
		in   string
		h, m int
		ok   bool
	}{
		{"18:05", 18, 5, true},
		{" 7:05 ", 7, 5, true},
		{"00:00", 0, 0, true},
		{"7:5", 0, 0, false},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"1205", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, c := range cases {
		h, m, err := ParseHHMM(c.in)
		if !c.ok {
			assert.Error(t, err, c.in)
			assert.False(t, ValidHHMM(c.in), c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.h, h, c.in)
		assert.Equal(t, c.m, m, c.in)
	}
}

func TestAddMinutes(t *testing.T) {
	cases := []struct {
		in   string
		add  int
		want string
	}{
		{"18:05", 10, "18:15"},
		{"23:55", 10, "00:05"},
		{"00:05", -10, "23:55"},
		{"12:00", 1440, "12:00"},
	}
	for _, c := range cases {
		got, err := AddMinutes(c.in, c.add)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s%+d", c.in, c.add)
	}
	_, err := AddMinutes("7:5", 5)
	assert.Error(t, err)
}

func TestAnchor(t *testing.T) {
	ref := time.Date(2024, 6, 14, 23, 40, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Time
	}{
		{"23:55", time.Date(2024, 6, 14, 23, 55, 0, 0, time.UTC)},
		{"00:05", time.Date(2024, 6, 15, 0, 5, 0, 0, time.UTC)},
		{"18:00", time.Date(2024, 6, 14, 18, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := Anchor(ref, c.in)
		require.NoError(t, err)
		assert.True(t, c.want.Equal(got), "%s: got %s", c.in, got)
	}
	_, err := Anchor(ref, "x")
	assert.Error(t, err)
}

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"12.50", "12.5"},
		{"12,50", "12.5"},
		{"12,50 €", "12.5"},
		{"€12.50", "12.5"},
		{"12.50 EUR", "12.5"},
		{"1,234.50", "1234.5"},
	}
	for _, c := range cases {
		got, err := ParseMoney(c.in)
		require.NoError(t, err, c.in)
		assert.True(t, decimal.RequireFromString(c.want).Equal(got), "%s: got %s", c.in, got)
	}
	_, err := ParseMoney("abc")
	assert.Error(t, err)
	assert.Equal(t, "12.50€", Euro(decimal.RequireFromString("12.5")))
}

func TestStartOfDay(t *testing.T) {
	got := StartOfDay(time.Date(2024, 6, 14, 23, 40, 5, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), got)
}
