// README: Screenshot text parser for photo-channel orders.
package ocr

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"dishbee/internal/types"
)

// Parsed is the order data recovered from a screenshot.
type Parsed struct {
	OrderCode    string
	Zip          string
	CustomerName string
	Street       string
	// AddressLine is the address as printed, before reformatting.
	AddressLine  string
	Phone        string
	ProductCount int
	Time         string
	Total        *decimal.Decimal
	Note         string
}

var (
	headerRe   = regexp.MustCompile(`^#\s*([A-Za-z0-9]+)(?:\s+([A-Za-z0-9-]+))?`)
	zipRe      = regexp.MustCompile(`\b(\d{5})\b`)
	phoneRe    = regexp.MustCompile(`^\+?[\d\s/().-]{7,}$`)
	phoneTagRe = regexp.MustCompile(`(?i)^(📞|☎️?|tel\.?:?|telefon:?|phone:?)\s*`)
	countRe    = regexp.MustCompile(`(?i)(\d+)\s*(?:x\s*)?(?:produkte?|products?|items?|artikel)\b`)
	timeRe     = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	asapRe     = regexp.MustCompile(`(?i)\basap\b|so schnell wie möglich`)
	totalRe    = regexp.MustCompile(`(\d+[.,]\d{2})\s*€`)
	totalTagRe = regexp.MustCompile(`(?i)total|gesamt|summe`)
	leadNumRe  = regexp.MustCompile(`^(\d+[a-zA-Z]?)\s+(.+)$`)
)

const noteEmoji = "📝"

// collapseGlyphs are the arrow glyphs the app shows next to a folded section.
const collapseGlyphs = "⌄˅∨▼▾›>"

func isGlyphOnly(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && strings.Trim(s, collapseGlyphs+" ") == ""
}

func endsWithGlyph(s string) bool {
	s = strings.TrimSpace(s)
	for _, g := range collapseGlyphs {
		if strings.HasSuffix(s, string(g)) {
			return true
		}
	}
	return false
}

// NormalizePhone converts a local number to +49 international form.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	p := b.String()
	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "+"):
		return p
	case strings.HasPrefix(p, "00"):
		return "+" + p[2:]
	case strings.HasPrefix(p, "0"):
		return "+49" + p[1:]
	default:
		return "+49" + p
	}
}

// ReformatStreet turns "12 Musterstraße" into "Musterstraße 12".
func ReformatStreet(s string) string {
	s = strings.TrimSpace(s)
	if m := leadNumRe.FindStringSubmatch(s); m != nil {
		return m[2] + " " + m[1]
	}
	return s
}

func phoneLine(line string) (string, bool) {
	if loc := phoneTagRe.FindStringIndex(line); loc != nil {
		if phone := NormalizePhone(line[loc[1]:]); len(phone) >= 8 {
			return phone, true
		}
		return "", false
	}
	if phoneRe.MatchString(line) && !zipRe.MatchString(strings.TrimSpace(line)) {
		digits := 0
		for _, r := range line {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits >= 7 {
			return NormalizePhone(line), true
		}
	}
	return "", false
}

// Parse extracts order fields from transcribed screenshot text. Errors are *ParseError.
func Parse(text string) (*Parsed, error) {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, failed("no text")
	}

	p := &Parsed{}
	headerIdx := -1
	for i, l := range lines {
		if m := headerRe.FindStringSubmatch(l); m != nil {
			group := m[2]
			if group == "" {
				group = m[1]
			}
			group = strings.ReplaceAll(group, "-", "")
			if len(group) >= 2 {
				p.OrderCode = group[len(group)-2:]
			} else {
				p.OrderCode = group
			}
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, failed("order header not found")
	}

	phoneIdx := -1
	noteCollapsed := false
	for i, l := range lines {
		if i == headerIdx {
			continue
		}
		if phoneIdx < 0 {
			if phone, ok := phoneLine(l); ok {
				p.Phone = phone
				phoneIdx = i
				continue
			}
		}
		if idx := strings.Index(l, noteEmoji); idx >= 0 {
			rest := strings.TrimSpace(l[idx+len(noteEmoji):])
			nextGlyph := i+1 < len(lines) && isGlyphOnly(lines[i+1])
			if rest == "" || isGlyphOnly(rest) || endsWithGlyph(rest) || nextGlyph {
				noteCollapsed = true
			} else {
				p.Note = rest
			}
		}
	}

	detailsCollapsed := phoneIdx < 0
	switch {
	case detailsCollapsed && noteCollapsed:
		return nil, &ParseError{Code: CodeDetailsAndNoteCollapsed}
	case detailsCollapsed:
		return nil, &ParseError{Code: CodeDetailsCollapsed}
	case noteCollapsed:
		return nil, &ParseError{Code: CodeNoteCollapsed}
	}

	addrIdx := -1
	for i, l := range lines {
		if i == headerIdx || i == phoneIdx || strings.Contains(l, "€") {
			continue
		}
		if m := zipRe.FindStringSubmatch(l); m != nil {
			p.Zip = m[1]
			addrIdx = i
			break
		}
	}
	if addrIdx < 0 {
		return nil, failed("address with zip code not found")
	}

	addr := lines[addrIdx]
	streetIdx := addrIdx
	street, _, _ := strings.Cut(addr, ",")
	street = strings.TrimSpace(street)
	if strings.HasPrefix(strings.TrimSpace(addr), p.Zip) && addrIdx > 0 {
		// "94032 Passau" on its own line: the street is the line above
		streetIdx = addrIdx - 1
		street = lines[streetIdx]
		addr = street + ", " + addr
	}
	p.AddressLine = addr
	p.Street = ReformatStreet(street)

	for i := streetIdx - 1; i > headerIdx; i-- {
		l := lines[i]
		if i == phoneIdx || isGlyphOnly(l) || timeRe.MatchString(l) || asapRe.MatchString(l) ||
			countRe.MatchString(l) || strings.Contains(l, "€") {
			continue
		}
		p.CustomerName = strings.TrimRight(l, collapseGlyphs+" ")
		break
	}

	for i, l := range lines {
		if i == phoneIdx || i == headerIdx {
			continue
		}
		if p.ProductCount == 0 {
			if m := countRe.FindStringSubmatch(l); m != nil {
				p.ProductCount, _ = strconv.Atoi(m[1])
			}
		}
		if p.Time == "" {
			if asapRe.MatchString(l) {
				p.Time = types.ASAP
			} else if m := timeRe.FindStringSubmatch(l); m != nil {
				h, _ := strconv.Atoi(m[1])
				p.Time = strconv.Itoa(100 + h)[1:] + ":" + m[2]
			}
		}
	}
	if p.Time == "" {
		p.Time = types.ASAP
	}

	var totalText string
	for _, l := range lines {
		if m := totalRe.FindStringSubmatch(l); m != nil {
			if totalTagRe.MatchString(l) {
				totalText = m[1]
				break
			}
			totalText = m[1]
		}
	}
	if totalText != "" {
		if d, err := types.ParseMoney(totalText); err == nil {
			p.Total = &d
		}
	}
	return p, nil
}
