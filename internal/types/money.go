// README: Common money value helpers used across modules (euro amounts on decimal).
package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney accepts "12.50", "12,50", "12,50 €" and "€12.50".
func ParseMoney(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimSuffix(clean, "EUR")
	clean = strings.Trim(clean, "€ ")
	if strings.Contains(clean, ",") && !strings.Contains(clean, ".") {
		clean = strings.ReplaceAll(clean, ",", ".")
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}
	return decimal.NewFromString(clean)
}

// Euro renders an amount the way the chat surfaces show it: 12.50€.
func Euro(d decimal.Decimal) string {
	return d.StringFixed(2) + "€"
}
