package entity

import (
	"fmt"
	"time"
)

const yearMonthLayout = "2006-01"

// YearMonth is a calendar month bucket key in "YYYY-MM" form.
type YearMonth string

// YearMonthOf returns the month bucket the given time falls into.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth(t.Format(yearMonthLayout))
}

func ParseYearMonth(s string) (YearMonth, error) {
	if _, err := time.Parse(yearMonthLayout, s); err != nil {
		return "", fmt.Errorf("invalid year month %q: %w", s, err)
	}
	return YearMonth(s), nil
}

func (ym YearMonth) String() string {
	return string(ym)
}

func (ym YearMonth) IsValid() bool {
	_, err := time.Parse(yearMonthLayout, string(ym))
	return err == nil
}

// Previous returns the preceding calendar month, handling year rollover.
func (ym YearMonth) Previous() YearMonth {
	t, err := time.Parse(yearMonthLayout, string(ym))
	if err != nil {
		return ym
	}
	return YearMonthOf(t.AddDate(0, -1, 0))
}
