package helpers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrInvalidPrice = errors.New("invalid price")

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParsePrice splits a catalog price such as "$50" or "IDR 1,250.00" into its
// amount and currency prefix. "Free" parses to zero with no currency.
func ParsePrice(s string) (decimal.Decimal, string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "free") {
		return decimal.Zero, "", nil
	}

	idx := strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsDigit(r) || r == '.'
	})
	if idx < 0 {
		return decimal.Zero, "", fmt.Errorf("%w: %q has no amount", ErrInvalidPrice, s)
	}

	currency := strings.TrimSpace(s[:idx])
	if strings.Contains(currency, "-") {
		return decimal.Zero, "", fmt.Errorf("%w: %q is negative", ErrInvalidPrice, s)
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(s[idx:], ",", ""))
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("%w: %q: %v", ErrInvalidPrice, s, err)
	}

	return amount, currency, nil
}

// FormatPrice renders an amount back with its currency prefix. Symbol
// currencies are glued to the amount, code currencies get a space.
func FormatPrice(amount decimal.Decimal, currency string) string {
	value := amount.StringFixed(2)
	if amount.IsInteger() {
		value = amount.String()
	}
	if currency == "" {
		return value
	}
	if len([]rune(currency)) == 1 {
		return currency + value
	}
	return currency + " " + value
}
