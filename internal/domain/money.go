package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in cents. Columns store it as NUMERIC(12,2).
type Money int64

// MoneyFromCents wraps a raw cent amount.
func MoneyFromCents(cents int64) Money { return Money(cents) }

// MaxMoney is the largest amount a NUMERIC(12,2) column holds.
const MaxMoney Money = 999999999999

// ParseMoney accepts "100", "100.5" or "100.50". More than two decimals is rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	raw := s
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("%w: amount %q must have at most two decimals", ErrInvalidInput, raw)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalidInput, raw)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w > int64(MaxMoney)/100 {
		return 0, fmt.Errorf("%w: amount %q out of range", ErrInvalidInput, raw)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalidInput, raw)
	}
	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return Money(cents), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Cents returns the raw amount.
func (m Money) Cents() int64 { return int64(m) }

// Mul multiplies by a whole quantity (nights).
func (m Money) Mul(n int) Money { return m * Money(n) }

// Float64 is for spreadsheet cells only; never compute with it.
func (m Money) Float64() float64 { return float64(m) / 100 }

func (m Money) String() string {
	sign := ""
	c := int64(m)
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// MarshalJSON writes a JSON number with two decimals, e.g. 300.00.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		return nil
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = 0
		return nil
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	case int64:
		*m = Money(v * 100)
		return nil
	case float64:
		return m.scanString(strconv.FormatFloat(v, 'f', 2, 64))
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
}

func (m *Money) scanString(s string) error {
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
