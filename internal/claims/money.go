package claims

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Amount is money in minor units (paise for INR). No floats.
type Amount int64

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool { return a > 0 }

// String renders the amount with two decimal places, e.g. 850.00.
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// AmountPtr is a convenience for optional amounts.
func AmountPtr(a Amount) *Amount { return &a }

const dateLayout = "2006-01-02"

// Date is a calendar day in UTC with wire form 2006-01-02.
type Date struct {
	time.Time
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a 2006-01-02 string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q (want YYYY-MM-DD)", ErrValidation, s)
	}
	return Date{t}, nil
}

// MustDate parses s and panics on error. Used for fixtures.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Ptr returns a pointer to a copy of d.
func (d Date) Ptr() *Date { return &d }

// MonthKey groups dates by calendar month (2006-01).
func (d Date) MonthKey() string { return d.Format("2006-01") }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
