// Package timeutil provides the date formatting helpers documents use
// for sortable numeric dates and timestamp strings.
package timeutil

import (
	"time"

	"github.com/pkg/errors"
)

// DefaultLayout is the timestamp layout used across document fields.
const DefaultLayout = "2006-01-02T15:04:05"

// DateNum renders a time as a sortable YYYYMMDD integer.
func DateNum(t time.Time) int {
	year, month, day := t.Date()
	return year*10000 + int(month)*100 + day
}

// TodayNum is DateNum for the current day.
func TodayNum() int {
	return DateNum(time.Now())
}

// Format renders a time with the given layout, defaulting to
// DefaultLayout when layout is empty.
func Format(t time.Time, layout string) string {
	if layout == "" {
		layout = DefaultLayout
	}
	return t.Format(layout)
}

// Now returns the current time in DefaultLayout.
func Now() string {
	return Format(time.Now(), "")
}

// Parse reads a timestamp with the given layout, defaulting to
// DefaultLayout when layout is empty.
func Parse(s, layout string) (time.Time, error) {
	if layout == "" {
		layout = DefaultLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, errors.WithMessagef(err, "failed to parse %q", s)
	}
	return t, nil
}

// Convert re-renders a timestamp string from one layout to another.
func Convert(s, fromLayout, toLayout string) (string, error) {
	t, err := Parse(s, fromLayout)
	if err != nil {
		return "", err
	}
	return Format(t, toLayout), nil
}
