package core

import (
	"fmt"
	"strings"
	"time"
)

// ParseTimezone resolves "local", "utc" or an IANA zone name. Empty means
// local.
func ParseTimezone(name string) (*time.Location, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "local":
		return time.Local, nil
	case "utc", "z":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

func LocalDate(ts time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return ts.In(loc).Format(DateLayout)
}
