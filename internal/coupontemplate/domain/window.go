package domain

import (
	"strings"
	"time"
)

var windowLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseWindow parses the optional validity bounds and rejects a reversed
// range. Empty strings mean an open bound.
func ParseWindow(fromRaw, toRaw string) (*time.Time, *time.Time, error) {
	from, err := parseWindowBound(fromRaw, "valid_from")
	if err != nil {
		return nil, nil, err
	}
	to, err := parseWindowBound(toRaw, "valid_to")
	if err != nil {
		return nil, nil, err
	}

	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, NewFieldError("valid_to", "reversed_window", "valid_to must not be before valid_from")
	}

	return from, to, nil
}

func parseWindowBound(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range windowLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc, nil
		}
	}
	return nil, NewFieldError(field, "invalid_date", "date must be RFC 3339 or YYYY-MM-DD")
}
