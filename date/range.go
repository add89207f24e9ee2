package date

import (
	"fmt"
	"strings"
)

// Range represents a range of dates, boundaries included.
// A zero boundary leaves that side open.
type Range struct{ From, To Date }

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool {
	if !r.From.IsZero() && date.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && date.After(r.To) {
		return false
	}
	return true
}

// ParseRange parses "FROM..TO" where either side may be empty.
func ParseRange(s string) (Range, error) {
	var r Range
	if s == "" {
		return r, nil
	}
	from, to, ok := strings.Cut(s, "..")
	if !ok {
		return r, fmt.Errorf("invalid range %q want FROM..TO", s)
	}
	var err error
	if from != "" {
		if r.From, err = Parse(from); err != nil {
			return r, err
		}
	}
	if to != "" {
		if r.To, err = Parse(to); err != nil {
			return r, err
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return r, fmt.Errorf("invalid range %q: %v is before %v", s, r.To, r.From)
	}
	return r, nil
}

func (r Range) String() string {
	var from, to string
	if !r.From.IsZero() {
		from = r.From.String()
	}
	if !r.To.IsZero() {
		to = r.To.String()
	}
	return from + ".." + to
}
