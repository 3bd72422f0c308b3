package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/qldp/registry/common/models"
)

// DateRange selects absences whose interval overlaps [From, To].
// A nil bound is open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// IsEmpty reports whether the range matches everything
func (r DateRange) IsEmpty() bool {
	return r.From == nil && r.To == nil
}

// Overlaps reports whether interval intersects the range
func (r DateRange) Overlaps(interval models.DateInterval) bool {
	if r.To != nil && interval.From.After(*r.To) {
		return false
	}
	if r.From != nil && interval.To.Before(*r.From) {
		return false
	}
	return true
}

// ParseDateRange parses "from,to" where either side may be empty.
// A single date "d" selects that day. Dates are YYYY-MM-DD or RFC 3339;
// a date-only upper bound covers its whole day.
func ParseDateRange(expr string) (DateRange, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return DateRange{}, nil
	}

	parts := strings.Split(expr, ",")
	switch len(parts) {
	case 1:
		from, err := ParseDate(parts[0])
		if err != nil {
			return DateRange{}, err
		}
		to, err := parseUpperBound(parts[0])
		if err != nil {
			return DateRange{}, err
		}
		return DateRange{From: &from, To: &to}, nil
	case 2:
	default:
		return DateRange{}, fmt.Errorf("%w: expected \"from,to\", got %q", models.ErrInvalidDateRange, expr)
	}

	var r DateRange
	if s := strings.TrimSpace(parts[0]); s != "" {
		from, err := ParseDate(s)
		if err != nil {
			return DateRange{}, err
		}
		r.From = &from
	}
	if s := strings.TrimSpace(parts[1]); s != "" {
		to, err := parseUpperBound(s)
		if err != nil {
			return DateRange{}, err
		}
		r.To = &to
	}

	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return DateRange{}, fmt.Errorf("%w: %s is after %s", models.ErrInvalidDateRange, parts[0], parts[1])
	}

	return r, nil
}

// ParseDate parses a YYYY-MM-DD or RFC 3339 date
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse date %q", models.ErrInvalidDateRange, s)
}

// parseUpperBound moves a date-only bound to the last microsecond of its day
func parseUpperBound(s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(s)); err == nil {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return t, nil
}
