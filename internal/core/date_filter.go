package core

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// DateFilter is an inclusive [Since, Until] range of local dates in
// YYYY-MM-DD form. An empty bound is open.
type DateFilter struct {
	Since string
	Until string
}

func (f DateFilter) IsZero() bool {
	return f.Since == "" && f.Until == ""
}

// Contains compares lexically, which is exact for zero-padded ISO dates.
func (f DateFilter) Contains(localDate string) bool {
	if f.Since != "" && localDate < f.Since {
		return false
	}
	if f.Until != "" && localDate > f.Until {
		return false
	}
	return true
}

// NewDateFilter parses both bounds with ParseDate and rejects inverted ranges.
func NewDateFilter(since, until string) (DateFilter, error) {
	var f DateFilter
	var err error
	if strings.TrimSpace(since) != "" {
		if f.Since, err = ParseDate(since); err != nil {
			return DateFilter{}, fmt.Errorf("since: %w", err)
		}
	}
	if strings.TrimSpace(until) != "" {
		if f.Until, err = ParseDate(until); err != nil {
			return DateFilter{}, fmt.Errorf("until: %w", err)
		}
	}
	if f.Since != "" && f.Until != "" && f.Since > f.Until {
		return DateFilter{}, fmt.Errorf("since %s is after until %s", f.Since, f.Until)
	}
	return f, nil
}

// ParseDate accepts YYYYMMDD or YYYY-MM-DD and returns YYYY-MM-DD.
func ParseDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"20060102", DateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("invalid date %q (want YYYYMMDD or YYYY-MM-DD)", value)
}
