package core

import (
	"errors"
	"strings"
	"time"
)

// Period is the closed set of relative time windows the dashboard offers.
type Period string

const (
	PeriodToday      Period = "today"
	PeriodLast7Days  Period = "last-7-days"
	PeriodLast30Days Period = "last-30-days"
	PeriodLast90Days Period = "last-90-days"
	PeriodAllTime    Period = "all-time"
)

// DefaultPeriod is the window a fresh dashboard starts with.
const DefaultPeriod = PeriodLast90Days

var ErrInvalidPeriod = errors.New("invalid period")

var periodAliases = map[string]Period{
	"week":    PeriodLast7Days,
	"month":   PeriodLast30Days,
	"3months": PeriodLast90Days,
	"all":     PeriodAllTime,
}

// Periods lists every period in display order.
func Periods() []Period {
	return []Period{PeriodToday, PeriodLast7Days, PeriodLast30Days, PeriodLast90Days, PeriodAllTime}
}

// ParsePeriod accepts canonical names and the short legacy aliases
// (week, month, 3months, all).
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	p := Period(s)
	if p.IsValid() {
		return p, nil
	}
	if alias, ok := periodAliases[s]; ok {
		return alias, nil
	}
	return "", ErrInvalidPeriod
}

func (p Period) IsValid() bool {
	switch p {
	case PeriodToday, PeriodLast7Days, PeriodLast30Days, PeriodLast90Days, PeriodAllTime:
		return true
	default:
		return false
	}
}

func (p Period) String() string { return string(p) }

// Label is the human readable name shown in the period selector.
func (p Period) Label() string {
	switch p {
	case PeriodToday:
		return "Today"
	case PeriodLast7Days:
		return "Last 7 days"
	case PeriodLast30Days:
		return "Last 30 days"
	case PeriodLast90Days:
		return "Last 3 months"
	case PeriodAllTime:
		return "All time"
	default:
		return string(p)
	}
}

// Cutoff returns the earliest instant included by p relative to now.
// "today" starts at local midnight; the rolling windows subtract whole
// 24h days. ok is false for all-time and unknown periods.
func (p Period) Cutoff(now time.Time) (cutoff time.Time, ok bool) {
	switch p {
	case PeriodToday:
		return StartOfDay(now), true
	case PeriodLast7Days:
		return now.Add(-7 * 24 * time.Hour), true
	case PeriodLast30Days:
		return now.Add(-30 * 24 * time.Hour), true
	case PeriodLast90Days:
		return now.Add(-90 * 24 * time.Hour), true
	default:
		return time.Time{}, false
	}
}

// StartOfDay truncates t to 00:00:00 in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
