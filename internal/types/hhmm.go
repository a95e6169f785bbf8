// README: Wall-clock "HH:MM" values used for requested and confirmed pickup times.
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ASAP is the requested-time marker for "as soon as possible".
const ASAP = "ASAP"

// ParseHHMM splits "18:05" into hour and minute.
func ParseHHMM(s string) (int, int, error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 || len(ms) != 2 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

func ValidHHMM(s string) bool {
	_, _, err := ParseHHMM(s)
	return err == nil
}

func FormatHHMM(t time.Time) string {
	return t.Format("15:04")
}

// AddMinutes shifts an HH:MM value, wrapping around midnight.
func AddMinutes(hhmm string, minutes int) (string, error) {
	h, m, err := ParseHHMM(hhmm)
	if err != nil {
		return "", err
	}
	total := ((h*60+m+minutes)%1440 + 1440) % 1440
	return fmt.Sprintf("%02d:%02d", total/60, total%60), nil
}

// OnDay places an HH:MM value on the calendar day of ref.
func OnDay(ref time.Time, hhmm string) (time.Time, error) {
	h, m, err := ParseHHMM(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := ref.Date()
	return time.Date(y, mo, d, h, m, 0, 0, ref.Location()), nil
}

// Anchor places hhmm on ref's day, or on the next day when that would land more
// than twelve hours before ref. Times wrapped past midnight stay after ref.
func Anchor(ref time.Time, hhmm string) (time.Time, error) {
	at, err := OnDay(ref, hhmm)
	if err != nil {
		return time.Time{}, err
	}
	if ref.Sub(at) > 12*time.Hour {
		at = at.AddDate(0, 0, 1)
	}
	return at, nil
}
