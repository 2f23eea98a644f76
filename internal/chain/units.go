package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the layout of a due date as typed by the user.
const DateLayout = "2006-01-02"

// displayDateLayout renders dates as dd/mm/yyyy.
const displayDateLayout = "02/01/2006"

var (
	ErrEmptyAmount    = errors.New("empty amount")
	ErrNegativeAmount = errors.New("negative amount")
	ErrTooPrecise     = errors.New("too many decimals")
	ErrAmountTooLarge = errors.New("amount does not fit in uint256")
	ErrBeforeEpoch    = errors.New("due date before 1970-01-01")
)

// maxUint256Digits is the decimal length of 2^256-1.
const maxUint256Digits = 78

// ParseAmount converts a human decimal string ("0.01") into the smallest
// unit of a currency with the given number of decimals.
func ParseAmount(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, ErrNegativeAmount
	}
	if d.IsZero() {
		return new(big.Int), nil
	}
	// bound the exponent before Shift: BigInt and Truncate materialise
	// 10^exp, which for "1e2147483640" never finishes
	exp := int64(d.Exponent()) + int64(decimals)
	digits := int64(d.NumDigits())
	if digits+exp > maxUint256Digits {
		return nil, fmt.Errorf("%w: %q", ErrAmountTooLarge, s)
	}
	if exp < 0 && -exp > digits {
		return nil, fmt.Errorf("%w: %q has more than %d", ErrTooPrecise, s, decimals)
	}
	units := d.Shift(int32(decimals))
	if !units.Equal(units.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than %d", ErrTooPrecise, s, decimals)
	}
	v := units.BigInt()
	if v.BitLen() > 256 {
		return nil, fmt.Errorf("%w: %q", ErrAmountTooLarge, s)
	}
	return v, nil
}

// FormatAmount renders a smallest-unit value as a decimal string. There is
// always at least one fractional digit: 10^18 wei renders as "1.0".
func FormatAmount(units *big.Int, decimals uint8) string {
	if units == nil {
		return "0.0"
	}
	s := decimal.NewFromBigInt(units, -int32(decimals)).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// DueTimestamp converts a YYYY-MM-DD date to the epoch second of its UTC
// midnight. The contract stores it as uint256, so dates before the epoch
// are rejected.
func DueTimestamp(date string) (*big.Int, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return nil, fmt.Errorf("parse due date: %w", err)
	}
	if t.Unix() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrBeforeEpoch, date)
	}
	return big.NewInt(t.Unix()), nil
}

// FormatDate renders an epoch second as dd/mm/yyyy in UTC.
func FormatDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(displayDateLayout)
}
