package server

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseOptionalDate reads a calendar day in loc, or a full RFC3339 timestamp.
func parseOptionalDate(value string, loc *time.Location) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.ParseInLocation(dateOnlyLayout, trimmed, loc); err == nil {
		return &parsed, nil
	}
	return nil, errors.New("invalid_date")
}

// dateRangeBound turns a calendar day into the stored UTC midnight form.
// An upper bound moves to the following midnight so the whole day is included.
func dateRangeBound(t *time.Time, loc *time.Location, endOfDay bool) *time.Time {
	if t == nil {
		return nil
	}
	local := t.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	if endOfDay {
		day = day.AddDate(0, 0, 1)
	}
	return &day
}

func (s *Server) location() *time.Location {
	if s.profile == nil {
		return time.UTC
	}
	return s.profile.Get().Report.Location()
}
