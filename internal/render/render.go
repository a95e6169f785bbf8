// README: Renderer: pure functions turning an order record into text and keyboards per chat surface.
package render

import (
	"net/url"
	"strings"
	"time"

	"dishbee/internal/config"
	"dishbee/internal/modules/order"
)

type Renderer struct {
	brand string
	reg   *config.Registry
	loc   *time.Location
}

func New(brand string, reg *config.Registry, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	if reg == nil {
		reg, _ = config.NewRegistry(nil, nil)
	}
	return &Renderer{brand: brand, reg: reg, loc: loc}
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// Escape protects user supplied text from the legacy Markdown parser.
func Escape(s string) string {
	return markdownEscaper.Replace(s)
}

// Street returns the part of a full address before the first comma.
func Street(address string) string {
	street, _, _ := strings.Cut(address, ",")
	return strings.TrimSpace(street)
}

// MapsURL is a search link for the address.
func MapsURL(address string) string {
	return "https://www.google.com/maps?q=" + url.QueryEscape(address)
}

// Code is the vendor short code.
func (r *Renderer) Code(vendor string) string {
	return r.reg.Code(vendor)
}

// Codes joins the order's vendor codes with "+".
func (r *Renderer) Codes(o *order.Order) string {
	codes := make([]string, 0, len(o.Vendors))
	for _, v := range o.Vendors {
		codes = append(codes, r.Code(v))
	}
	return strings.Join(codes, "+")
}

func (r *Renderer) CourierName(id int64) string {
	return r.reg.CourierName(id)
}

func addressLine(c order.Customer) string {
	street := Street(c.AddressFull)
	if c.Zip != "" {
		return street + " (" + c.Zip + ")"
	}
	return street
}

func telLink(phone string) string {
	return "[" + phone + "](tel:" + phone + ")"
}

func isCash(method string) bool {
	m := strings.ToLower(method)
	return strings.Contains(m, "cash") || strings.Contains(m, "bar")
}

// vendorTimes renders "KA 18:00 + PF 18:10" from a vendor→time map in vendor order.
func (r *Renderer) vendorTimes(o *order.Order, times map[string]string) string {
	parts := make([]string, 0, len(o.Vendors))
	for _, v := range o.Vendors {
		if t := times[v]; t != "" {
			parts = append(parts, r.Code(v)+" "+t)
		}
	}
	return strings.Join(parts, " + ")
}
