// Package core provides money parsing and handling utilities.
//
// Money wraps an exact decimal so totals never accumulate floating point
// drift. Values are stored with two fraction digits and only turned into
// display strings at the presentation edge.
package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits kept for amounts.
const MoneyScale = 2

// MaxAmount is the largest amount the NUMERIC(12,2) amount column holds.
var MaxAmount = MoneyFromCents(999_999_999_999)

// Money is a non-floating monetary amount in the single display currency.
type Money struct {
	d decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{d: d.Round(MoneyScale)}
}

// MoneyFromCents builds an amount from an integer number of minor units.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -MoneyScale)}
}

// ParseMoney parses a user supplied amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half away from zero to two places. Negative, non-numeric and
// above-MaxAmount values are rejected; zero is allowed.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34, nil
//	ParseMoney("12,345") -> 12.35, nil
//	ParseMoney("-1")     -> error
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	m := NewMoney(d)
	if m.Cmp(MaxAmount) > 0 {
		return Money{}, ErrAmountTooLarge
	}
	return m, nil
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

func (m Money) IsZero() bool { return m.d.IsZero() }

func (m Money) IsNegative() bool { return m.d.IsNegative() }

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return m.d.Shift(MoneyScale).Round(0).IntPart()
}

// String renders the amount with exactly two fraction digits, e.g. "150.00".
func (m Money) String() string {
	return m.d.StringFixed(MoneyScale)
}

// Format renders the amount prefixed by a currency symbol, e.g. "฿150.00".
func (m Money) Format(symbol string) string {
	if m.d.IsNegative() {
		return "-" + symbol + m.d.Neg().StringFixed(MoneyScale)
	}
	return symbol + m.d.StringFixed(MoneyScale)
}

// Percent returns m as a share of total, rounded to one decimal place.
func (m Money) Percent(total Money) decimal.Decimal {
	if total.d.IsZero() {
		return decimal.Zero
	}
	return m.d.Div(total.d).Mul(decimal.NewFromInt(100)).Round(1)
}

// MarshalJSON emits a JSON number with two fraction digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.StringFixed(MoneyScale)), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return ErrInvalidAmount
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalidAmount
		}
		raw = s
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer; amounts are persisted as fixed-point text.
func (m Money) Value() (driver.Value, error) {
	return m.d.StringFixed(MoneyScale), nil
}

// Scan implements sql.Scanner for the column types sqlite and postgres return.
func (m *Money) Scan(src any) error {
	var d decimal.Decimal
	switch v := src.(type) {
	case nil:
		d = decimal.Zero
	case string:
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("scan money %q: %w", v, err)
		}
		d = parsed
	case []byte:
		parsed, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("scan money %q: %w", v, err)
		}
		d = parsed
	case float64:
		d = decimal.NewFromFloat(v)
	case int64:
		d = decimal.NewFromInt(v)
	default:
		return fmt.Errorf("scan money: unsupported type %T", src)
	}
	*m = NewMoney(d)
	return nil
}
