package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
	"02.01.2006",
	"01.2006",
}

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// CalculateDuration renders the span between two date strings as
// "N years and M months". The end date may be "present" for the current
// date. Years and months use calendar approximations of 365 and 30 days.
func CalculateDuration(start, end string, now time.Time) (string, error) {
	startDate, err := parseDate(start, now)
	if err != nil {
		return "", fmt.Errorf("parse start date %q: %w", start, err)
	}
	endDate, err := parseDate(end, now)
	if err != nil {
		return "", fmt.Errorf("parse end date %q: %w", end, err)
	}

	days := int(endDate.Sub(startDate).Hours() / 24)
	if days < 0 {
		days = 0
	}
	years := days / 365
	months := (days % 365) / 30
	return fmt.Sprintf("%d years and %d months", years, months), nil
}

func parseDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "present") || strings.EqualFold(value, "now") {
		return now, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	// Fall back to the first 4-digit year found anywhere in the value.
	if match := yearPattern.FindString(value); match != "" {
		year, err := strconv.Atoi(match)
		if err == nil {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}
