package raffle

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseHexAmount parses an unsigned hex amount of any width, with or without
// a 0x prefix.
func ParseHexAmount(s string) (*big.Int, error) {
	digits := trimHexPrefix(s)
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return nil, fmt.Errorf("%w: %q is not a hex amount", ErrMalformedNumber, s)
	}
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a hex amount", ErrMalformedNumber, s)
	}
	return v, nil
}

// ParseHexTimestamp parses a hex timestamp into seconds.
func ParseHexTimestamp(s string) (uint64, error) {
	digits := trimHexPrefix(s)
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return 0, fmt.Errorf("%w: %q is not a hex timestamp", ErrMalformedNumber, s)
	}
	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a hex timestamp", ErrMalformedNumber, s)
	}
	return v, nil
}

// FormatAmount renders a base-unit amount in whole tokens, e.g. lamports as
// SOL with decimals = 9.
func FormatAmount(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}

func trimHexPrefix(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
