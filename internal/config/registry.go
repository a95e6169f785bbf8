// README: Identity registry: restaurants (chat, code, phone, address) and authorized couriers.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

type Restaurant struct {
	Name    string
	Code    string
	ChatID  int64
	Phone   string
	Address string
}

type Courier struct {
	Name   string
	UserID int64
}

// Registry is immutable after construction and safe for concurrent reads.
type Registry struct {
	restaurants []Restaurant
	byName      map[string]int
	byCode      map[string]int
	byChat      map[int64]int
	couriers    []Courier
	courierByID map[int64]int
}

var builtinCodes = map[string]string{
	"Julis Spätzlerei":       "JS",
	"Zweite Heimat":          "ZH",
	"Kahaani":                "KA",
	"Leckerolls":             "LR",
	"i Sapori della Toscana": "SA",
	"Safi":                   "SF",
	"Hello Burrito":          "HB",
	"Wittelsbacher Apotheke": "AP",
	"Pommes Freunde":         "PF",
}

// ShortCode returns the built-in code for name, or the first letters of its first two words.
func ShortCode(name string) string {
	if code, ok := builtinCodes[name]; ok {
		return code
	}
	var b strings.Builder
	for i, w := range strings.Fields(name) {
		if i == 2 {
			break
		}
		r := []rune(w)
		b.WriteRune(unicode.ToUpper(r[0]))
	}
	if b.Len() == 1 {
		if r := []rune(strings.TrimSpace(name)); len(r) > 1 {
			b.WriteRune(unicode.ToUpper(r[1]))
		}
	}
	return b.String()
}

func NewRegistry(restaurants []Restaurant, couriers []Courier) (*Registry, error) {
	r := &Registry{
		byName:      map[string]int{},
		byCode:      map[string]int{},
		byChat:      map[int64]int{},
		courierByID: map[int64]int{},
	}
	for _, rest := range restaurants {
		if rest.Name == "" {
			return nil, fmt.Errorf("registry: restaurant without name")
		}
		if rest.Code == "" {
			rest.Code = ShortCode(rest.Name)
		}
		if _, dup := r.byName[rest.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate restaurant %q", rest.Name)
		}
		if other, dup := r.byCode[rest.Code]; dup {
			return nil, fmt.Errorf("registry: code %q used by %q and %q", rest.Code, r.restaurants[other].Name, rest.Name)
		}
		idx := len(r.restaurants)
		r.restaurants = append(r.restaurants, rest)
		r.byName[rest.Name] = idx
		r.byCode[rest.Code] = idx
		if rest.ChatID != 0 {
			r.byChat[rest.ChatID] = idx
		}
	}
	for _, c := range couriers {
		if c.Name == "" || c.UserID == 0 {
			return nil, fmt.Errorf("registry: invalid courier %q", c.Name)
		}
		if _, dup := r.courierByID[c.UserID]; dup {
			return nil, fmt.Errorf("registry: duplicate courier id %d", c.UserID)
		}
		r.courierByID[c.UserID] = len(r.couriers)
		r.couriers = append(r.couriers, c)
	}
	return r, nil
}

// NewRegistryFromEnv builds a registry from the comma separated Name=value lists.
func NewRegistryFromEnv(chatIDs, codes, phones, addresses, couriers string) (*Registry, error) {
	chatPairs, err := parsePairs(chatIDs)
	if err != nil {
		return nil, fmt.Errorf("VENDOR_CHAT_IDS: %w", err)
	}
	codePairs, err := parsePairs(codes)
	if err != nil {
		return nil, fmt.Errorf("VENDOR_CODES: %w", err)
	}
	phonePairs, err := parsePairs(phones)
	if err != nil {
		return nil, fmt.Errorf("VENDOR_PHONES: %w", err)
	}
	addrPairs, err := parsePairs(addresses)
	if err != nil {
		return nil, fmt.Errorf("VENDOR_ADDRESSES: %w", err)
	}
	courierPairs, err := parsePairs(couriers)
	if err != nil {
		return nil, fmt.Errorf("COURIERS: %w", err)
	}

	codeOf := map[string]string{}
	for _, p := range codePairs {
		codeOf[p.key] = strings.ToUpper(p.value)
	}
	phoneOf := map[string]string{}
	for _, p := range phonePairs {
		phoneOf[p.key] = p.value
	}
	addrOf := map[string]string{}
	for _, p := range addrPairs {
		addrOf[p.key] = p.value
	}

	var rests []Restaurant
	for _, p := range chatPairs {
		id, err := strconv.ParseInt(p.value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("VENDOR_CHAT_IDS: %s: %w", p.key, err)
		}
		rests = append(rests, Restaurant{
			Name:    p.key,
			Code:    codeOf[p.key],
			ChatID:  id,
			Phone:   phoneOf[p.key],
			Address: addrOf[p.key],
		})
	}

	var cs []Courier
	for _, p := range courierPairs {
		id, err := strconv.ParseInt(p.value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("COURIERS: %s: %w", p.key, err)
		}
		cs = append(cs, Courier{Name: p.key, UserID: id})
	}
	return NewRegistry(rests, cs)
}

type pair struct {
	key, value string
}

func parsePairs(raw string) ([]pair, error) {
	var out []pair
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("malformed entry %q", part)
		}
		out = append(out, pair{key: k, value: v})
	}
	return out, nil
}

func (r *Registry) Restaurant(name string) (Restaurant, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Restaurant{}, false
	}
	return r.restaurants[idx], true
}

func (r *Registry) RestaurantByCode(code string) (Restaurant, bool) {
	idx, ok := r.byCode[code]
	if !ok {
		return Restaurant{}, false
	}
	return r.restaurants[idx], true
}

func (r *Registry) RestaurantByChat(chatID int64) (Restaurant, bool) {
	idx, ok := r.byChat[chatID]
	if !ok {
		return Restaurant{}, false
	}
	return r.restaurants[idx], true
}

// Code returns the configured code for a restaurant, falling back to ShortCode for unknown names.
func (r *Registry) Code(name string) string {
	if rest, ok := r.Restaurant(name); ok {
		return rest.Code
	}
	return ShortCode(name)
}

func (r *Registry) Restaurants() []Restaurant {
	out := make([]Restaurant, len(r.restaurants))
	copy(out, r.restaurants)
	return out
}

func (r *Registry) Courier(userID int64) (Courier, bool) {
	idx, ok := r.courierByID[userID]
	if !ok {
		return Courier{}, false
	}
	return r.couriers[idx], true
}

// CourierName returns the display name or the numeric id for unknown users.
func (r *Registry) CourierName(userID int64) string {
	if c, ok := r.Courier(userID); ok {
		return c.Name
	}
	return strconv.FormatInt(userID, 10)
}

// Couriers returns couriers sorted by name.
func (r *Registry) Couriers() []Courier {
	out := make([]Courier, len(r.couriers))
	copy(out, r.couriers)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
