package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// Period identifies a calendar quarter. Periods are totally ordered and
// support offset arithmetic, so "four quarters before 2025Q1" is simply
// p.Add(-4). The zero value is not a valid period; construct one with
// NewPeriod or ParsePeriod.
type Period int

// NewPeriod creates a Period for the given year and quarter (1-4).
func NewPeriod(year, quarter int) Period {
	return Period(year*4 + quarter - 1)
}

var periodPattern = regexp.MustCompile(`^(\d{4})[Qq]([1-4])$`)

// ParsePeriod parses a period string like "2025Q1".
func ParsePeriod(s string) (Period, error) {
	m := periodPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid period %q: want YYYYQn with n in 1-4", s)
	}
	year, _ := strconv.Atoi(m[1])
	quarter, _ := strconv.Atoi(m[2])
	return NewPeriod(year, quarter), nil
}

// MustParsePeriod is ParsePeriod that panics on malformed input.
// Intended for fixed literals in configuration defaults and tests.
func MustParsePeriod(s string) Period {
	p, err := ParsePeriod(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Year returns the calendar year of the period.
func (p Period) Year() int {
	return int(p) / 4
}

// Quarter returns the quarter within the year (1-4).
func (p Period) Quarter() int {
	return int(p)%4 + 1
}

// Add returns the period n quarters after p (n may be negative).
func (p Period) Add(n int) Period {
	return p + Period(n)
}

// Next returns the following quarter.
func (p Period) Next() Period {
	return p + 1
}

// Prev returns the preceding quarter.
func (p Period) Prev() Period {
	return p - 1
}

// Sub returns the number of quarters from o to p.
func (p Period) Sub(o Period) int {
	return int(p - o)
}

// Before reports whether p is strictly earlier than o.
func (p Period) Before(o Period) bool {
	return p < o
}

// After reports whether p is strictly later than o.
func (p Period) After(o Period) bool {
	return p > o
}

// String formats the period as "2025Q1".
func (p Period) String() string {
	return fmt.Sprintf("%04dQ%d", p.Year(), p.Quarter())
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p Period) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Period) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PeriodRange returns all periods from start to end inclusive, in
// chronological order. Returns nil if end precedes start.
func PeriodRange(start, end Period) []Period {
	if end.Before(start) {
		return nil
	}
	periods := make([]Period, 0, end.Sub(start)+1)
	for p := start; !p.After(end); p = p.Next() {
		periods = append(periods, p)
	}
	return periods
}
