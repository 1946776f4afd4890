package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Monetary amounts are carried as int64 USDC cents everywhere inside the
// system so ledger arithmetic is exact. The API boundary speaks decimal
// strings ("0.03"); these helpers convert.

// ParseUSDC converts a decimal USDC string to cents. At most two fractional
// digits are accepted.
func ParseUSDC(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	cents := w*100 + f
	if negative {
		cents = -cents
	}
	return cents, nil
}

// FormatUSDC converts cents to a decimal USDC string with two fractional
// digits, e.g. 994 -> "9.94".
func FormatUSDC(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
