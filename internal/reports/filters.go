package reports

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidDateRange = errors.New("invalid date range")

// GetDateRange returns start and end time for the given preset, relative to
// now. startStr/endStr are "2006-01-02" and required when dateRange is custom.
func GetDateRange(now time.Time, dateRange, startStr, endStr string) (time.Time, time.Time, error) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	endOfDay := func(t time.Time) time.Time { return t.AddDate(0, 0, 1).Add(-time.Second) }

	switch dateRange {
	case DateRangeDaily:
		return today, endOfDay(today), nil
	case DateRangeWeekly:
		// last 7 days including today
		return today.AddDate(0, 0, -6), endOfDay(today), nil
	case DateRangeMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0).Add(-time.Second), nil
	case DateRangeYearly:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0).Add(-time.Second), nil
	case DateRangeCustom:
		if startStr == "" || endStr == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date and end_date required for custom range", ErrInvalidDateRange)
		}
		start, err := time.ParseInLocation("2006-01-02", startStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date: %v", ErrInvalidDateRange, err)
		}
		end, err := time.ParseInLocation("2006-01-02", endStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date: %v", ErrInvalidDateRange, err)
		}
		end = endOfDay(end)
		if start.After(end) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date must be before end_date", ErrInvalidDateRange)
		}
		return start, end, nil
	default:
		return GetDateRange(now, DateRangeWeekly, "", "")
	}
}
