package esesja

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Listing dates use the Polish genitive month form: "12 marca 2024".
var polishMonths = map[string]time.Month{
	"stycznia":     time.January,
	"lutego":       time.February,
	"marca":        time.March,
	"kwietnia":     time.April,
	"maja":         time.May,
	"czerwca":      time.June,
	"lipca":        time.July,
	"sierpnia":     time.August,
	"września":     time.September,
	"października": time.October,
	"listopada":    time.November,
	"grudnia":      time.December,
}

func parsePolishDate(raw string) (time.Time, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
	}
	day, err := strconv.Atoi(fields[0])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("unrecognized day in %q", raw)
	}
	month, ok := polishMonths[fields[1]]
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognized month in %q", raw)
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized year in %q", raw)
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}
