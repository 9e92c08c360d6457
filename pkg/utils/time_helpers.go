package utils

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate разбирает дату вида 2024-05-31 в часовом поясе loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("дата '%s' должна быть в формате ГГГГ-ММ-ДД: %w", raw, err)
	}
	return t, nil
}

// DayBounds возвращает полуинтервал [начало дня, начало следующего дня).
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// MonthBounds возвращает полуинтервал [1-е число месяца, 1-е число следующего).
func MonthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}
