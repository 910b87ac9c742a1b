package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type PeriodType string

const (
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodYearly    PeriodType = "yearly"
)

var (
	monthlyKey   = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])$`)
	quarterlyKey = regexp.MustCompile(`^(\d{4})-Q([1-4])$`)
	yearlyKey    = regexp.MustCompile(`^(\d{4})$`)
)

// Period is a half-open range of invoice dates [From, To) in UTC.
type Period struct {
	Type PeriodType `json:"type"`
	Key  string     `json:"key"`
	From time.Time  `json:"from"`
	To   time.Time  `json:"to"`
}

// ParsePeriod validates key against the layout of periodType: YYYY-MM for
// monthly, YYYY-Qn for quarterly and YYYY for yearly.
func ParsePeriod(periodType, key string) (Period, error) {
	pt := PeriodType(strings.ToLower(strings.TrimSpace(periodType)))
	key = strings.ToUpper(strings.TrimSpace(key))

	switch pt {
	case PeriodMonthly:
		m := monthlyKey.FindStringSubmatch(key)
		if m == nil {
			return Period{}, ErrInvalidPeriod
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return Period{Type: pt, Key: key, From: from, To: from.AddDate(0, 1, 0)}, nil
	case PeriodQuarterly:
		m := quarterlyKey.FindStringSubmatch(key)
		if m == nil {
			return Period{}, ErrInvalidPeriod
		}
		year, _ := strconv.Atoi(m[1])
		quarter, _ := strconv.Atoi(m[2])
		from := time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		return Period{Type: pt, Key: key, From: from, To: from.AddDate(0, 3, 0)}, nil
	case PeriodYearly:
		m := yearlyKey.FindStringSubmatch(key)
		if m == nil {
			return Period{}, ErrInvalidPeriod
		}
		year, _ := strconv.Atoi(m[1])
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return Period{Type: pt, Key: key, From: from, To: from.AddDate(1, 0, 0)}, nil
	default:
		return Period{}, ErrInvalidPeriod
	}
}

// Buckets lists the series keys covering the period: days for a month,
// months otherwise.
func (p Period) Buckets() []string {
	var keys []string
	if p.Type == PeriodMonthly {
		for d := p.From; d.Before(p.To); d = d.AddDate(0, 0, 1) {
			keys = append(keys, d.Format(DayLayout))
		}
		return keys
	}
	for d := p.From; d.Before(p.To); d = d.AddDate(0, 1, 0) {
		keys = append(keys, d.Format(MonthLayout))
	}
	return keys
}

// BucketOf returns the series key t falls into.
func (p Period) BucketOf(t time.Time) string {
	if p.Type == PeriodMonthly {
		return t.UTC().Format(DayLayout)
	}
	return t.UTC().Format(MonthLayout)
}

const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)
