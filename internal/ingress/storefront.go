// README: Storefront webhook: HMAC verification and order payload decoding into a draft order.
package ingress

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"dishbee/internal/config"
	"dishbee/internal/modules/ocr"
	"dishbee/internal/modules/order"
	"dishbee/internal/types"
)

var (
	ErrBadSignature = errors.New("ingress: signature mismatch")
	ErrValidation   = errors.New("ingress: validation failed")
)

// SignatureHeader carries base64(HMAC-SHA256(body, secret)).
const SignatureHeader = "X-Signature-Sha256"

// Sign computes the storefront signature for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares the header value with the expected signature in constant time.
func VerifySignature(secret string, body []byte, header string) error {
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header))
	if err != nil || len(got) == 0 {
		return ErrBadSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}

type storefrontPayload struct {
	ID                  int64            `json:"id"`
	Name                string           `json:"name" validate:"required"`
	CreatedAt           time.Time        `json:"created_at"`
	Note                string           `json:"note"`
	TotalPrice          string           `json:"total_price"`
	TotalTipReceived    string           `json:"total_tip_received"`
	PaymentGatewayNames []string         `json:"payment_gateway_names"`
	Customer            *customerPayload `json:"customer"`
	ShippingAddress     *addressPayload  `json:"shipping_address"`
	LineItems           []lineItem       `json:"line_items" validate:"required,min=1,dive"`
	ShippingLines       []shippingLine   `json:"shipping_lines"`
}

type customerPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type addressPayload struct {
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
}

type lineItem struct {
	Title    string `json:"title" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
	Vendor   string `json:"vendor" validate:"required"`
}

type shippingLine struct {
	Title string `json:"title"`
	Code  string `json:"code"`
}

// Decoder turns validated inbound payloads into drafts and events.
type Decoder struct {
	reg      *config.Registry
	loc      *time.Location
	dispatch int64
	validate *validator.Validate
}

func NewDecoder(reg *config.Registry, loc *time.Location, dispatchChatID int64) *Decoder {
	if loc == nil {
		loc = time.Local
	}
	return &Decoder{reg: reg, loc: loc, dispatch: dispatchChatID, validate: validator.New()}
}

// Storefront decodes a signature-checked webhook body into a draft order.
func (d *Decoder) Storefront(body []byte) (*order.Order, error) {
	var p storefrontPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrValidation, err)
	}
	if err := d.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	o := &order.Order{
		ID:          strconv.FormatInt(p.ID, 10),
		Source:      order.SourceStorefront,
		DisplayName: displayName(p.Name),
		Items:       map[string][]string{},
		Note:        strings.TrimSpace(p.Note),
		IsPickup:    isPickup(p.ShippingLines),
	}
	if p.ID == 0 {
		o.ID = strings.TrimPrefix(strings.TrimSpace(p.Name), "#")
	}
	if !p.CreatedAt.IsZero() {
		o.CreatedAt = p.CreatedAt.In(d.loc)
	}
	if len(p.PaymentGatewayNames) > 0 {
		o.PaymentMethod = p.PaymentGatewayNames[0]
	}

	for _, li := range p.LineItems {
		rest, ok := d.reg.Restaurant(li.Vendor)
		if !ok {
			return nil, fmt.Errorf("%w: unknown vendor %q", ErrValidation, li.Vendor)
		}
		if !o.HasVendor(rest.Name) {
			o.Vendors = append(o.Vendors, rest.Name)
		}
		o.Items[rest.Name] = append(o.Items[rest.Name], fmt.Sprintf("%d x %s", li.Quantity, li.Title))
	}

	if err := d.customer(o, p); err != nil {
		return nil, err
	}
	if total, err := types.ParseMoney(p.TotalPrice); err == nil {
		o.Total = &total
	}
	if tip, err := types.ParseMoney(p.TotalTipReceived); err == nil && tip.IsPositive() {
		o.Tips = &tip
	}
	return o, nil
}

func (d *Decoder) customer(o *order.Order, p storefrontPayload) error {
	var c order.Customer
	addr := p.ShippingAddress
	if addr != nil {
		c.Name = strings.TrimSpace(addr.Name)
		if c.Name == "" {
			c.Name = strings.TrimSpace(addr.FirstName + " " + addr.LastName)
		}
		c.Phone = addr.Phone
		c.Zip = strings.TrimSpace(addr.Zip)
		c.AddressOriginal = strings.TrimSpace(addr.Address1)
		if c.AddressOriginal != "" {
			street := c.AddressOriginal
			if a2 := strings.TrimSpace(addr.Address2); a2 != "" {
				street += " " + a2
			}
			c.AddressFull = strings.TrimSpace(street + ", " + strings.TrimSpace(c.Zip+" "+addr.City))
		}
	}
	if p.Customer != nil {
		if c.Name == "" {
			c.Name = strings.TrimSpace(p.Customer.FirstName + " " + p.Customer.LastName)
		}
		if c.Phone == "" {
			c.Phone = p.Customer.Phone
		}
	}
	c.Phone = ocr.NormalizePhone(c.Phone)

	if c.Name == "" {
		return fmt.Errorf("%w: missing customer name", ErrValidation)
	}
	if c.AddressFull == "" && !o.IsPickup {
		return fmt.Errorf("%w: missing delivery address", ErrValidation)
	}
	o.Customer = c
	return nil
}

// displayName keeps the last two characters of the storefront order name, "#1001" → "01".
func displayName(name string) string {
	n := strings.TrimPrefix(strings.TrimSpace(name), "#")
	if len(n) > 2 {
		return n[len(n)-2:]
	}
	return n
}

func isPickup(lines []shippingLine) bool {
	for _, l := range lines {
		t := strings.ToLower(l.Title + " " + l.Code)
		if strings.Contains(t, "pickup") || strings.Contains(t, "pick-up") || strings.Contains(t, "abholung") {
			return true
		}
	}
	return false
}
