// Package money formats integer minor-unit amounts for display.
package money

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ValidCurrency reports whether code is a known ISO 4217 currency.
func ValidCurrency(code string) bool {
	_, err := currency.ParseISO(code)
	return err == nil
}

// Scale returns the number of minor-unit digits of the currency, 2 for unknown codes.
func Scale(code string) int {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// Format renders amount, given in minor units of code, for the language tag, e.g.
// Format(language.English, 1250, "USD") == "$ 12.50".
func Format(tag language.Tag, amount int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return strconv.FormatInt(amount, 10) + " " + strings.ToUpper(code)
	}
	scale, _ := currency.Standard.Rounding(unit)
	value := float64(amount) / math.Pow10(scale)
	return message.NewPrinter(tag).Sprint(currency.Symbol(unit.Amount(value)))
}

// ParseTag parses an Accept-Language header or a single tag, falling back to English.
func ParseTag(s string) language.Tag {
	s = strings.TrimSpace(s)
	if s == "" {
		return language.English
	}
	if tags, _, err := language.ParseAcceptLanguage(s); err == nil && len(tags) > 0 {
		return tags[0]
	}
	return language.English
}
