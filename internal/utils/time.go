package utils

import (
	"strings"
	"time"
)

const (
	layoutDate  = "2006-01-02"
	layoutMonth = "2006-01"
)

// ParseDate parses YYYY-MM-DD in local timezone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(layoutDate, strings.TrimSpace(s), time.Local)
}

// MonthKey groups a timestamp by calendar month (YYYY-MM) in local timezone.
func MonthKey(t time.Time) string {
	return t.In(time.Local).Format(layoutMonth)
}
