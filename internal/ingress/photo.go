// README: Photo channel: turns an OCR result for a known restaurant into a draft order.
package ingress

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dishbee/internal/modules/ocr"
	"dishbee/internal/modules/order"
	"dishbee/internal/types"
)

// Photo builds a draft from parsed screenshot fields. Ids are "ph-<code>-<random>"
// and the display name is the street without its house number.
func (d *Decoder) Photo(vendor string, p *ocr.Parsed, now time.Time) (*order.Order, error) {
	rest, ok := d.reg.Restaurant(strings.TrimSpace(vendor))
	if !ok {
		return nil, fmt.Errorf("%w: unknown vendor %q", ErrValidation, vendor)
	}
	if p == nil || p.Street == "" {
		return nil, fmt.Errorf("%w: missing delivery address", ErrValidation)
	}
	code := p.OrderCode
	if code == "" {
		code = "xx"
	}

	full := p.Street
	if p.Zip != "" {
		full += ", " + p.Zip
	}
	note := p.Note
	if p.Time != "" && p.Time != types.ASAP {
		note = strings.TrimSpace("Deliver at " + p.Time + ". " + note)
	}
	return &order.Order{
		ID:           "ph-" + code + "-" + uuid.NewString()[:8],
		Source:       order.SourcePhoto,
		DisplayName:  streetName(p.Street),
		ExternalCode: p.OrderCode,
		Vendors:      []string{rest.Name},
		Customer: order.Customer{
			Name:            p.CustomerName,
			Phone:           p.Phone,
			AddressFull:     full,
			AddressOriginal: p.AddressLine,
			Zip:             p.Zip,
		},
		Note:         note,
		Total:        p.Total,
		ProductCount: p.ProductCount,
		CreatedAt:    now.In(d.loc),
	}, nil
}

// streetName drops house-number tokens: "Ludwigstraße 12a" gives "Ludwigstraße".
func streetName(street string) string {
	var words []string
	for _, w := range strings.Fields(street) {
		if strings.ContainsAny(w, "0123456789") {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return strings.TrimSpace(street)
	}
	return strings.Join(words, " ")
}
