// Package utils provides utility functions and constants for common operations
// throughout the application.
package utils

import (
	"strings"
	"time"
)

// DateFormat is the calendar day layout used for query input, ledger keys and exports.
const DateFormat = "2006-01-02"

// AreAddressesEqual compares two Ethereum addresses for equality, ignoring case.
func AreAddressesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// NormalizeAddress lower-cases and trims an address so it can be used as a map key.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// StartOfDay truncates a timestamp to midnight UTC of the same UTC calendar day.
//
// Parameters:
//   - t: Any timestamp
//
// Returns:
//   - time.Time: The UTC calendar day containing t
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(t), nil
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// DaysBetween returns every calendar day from start to end inclusive, ascending.
// An empty slice is returned when end is before start.
func DaysBetween(start, end time.Time) []time.Time {
	start = StartOfDay(start)
	end = StartOfDay(end)

	days := make([]time.Time, 0)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func Map[A any, B any](coll []A, fn func(i A, index uint64) B) []B {
	out := make([]B, len(coll))
	for i, item := range coll {
		out[i] = fn(item, uint64(i))
	}
	return out
}

func Filter[A any](coll []A, criteria func(i A) bool) []A {
	out := make([]A, 0)
	for _, item := range coll {
		if criteria(item) {
			out = append(out, item)
		}
	}
	return out
}
