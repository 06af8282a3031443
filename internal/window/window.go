// Package window decides whether a schedule's sending window is open.
package window

import (
	"fmt"
	"time"

	"github.com/onurcolak/campaign-dispatcher/internal/domain"
)

var timeLayouts = []string{"15:04:05", "15:04"}

// Window is a validated, parsed view of a schedule's timing rules.
type Window struct {
	weekdays  domain.WeekdaySet
	startSec  int
	endSec    int
	startDate int
	endDate   int // 0 when open-ended
	approved  bool
}

// Parse validates a schedule and returns its window. Malformed schedules
// yield *domain.InvalidScheduleError.
func Parse(s domain.Schedule) (Window, error) {
	invalid := func(format string, args ...any) (Window, error) {
		return Window{}, &domain.InvalidScheduleError{ScheduleID: s.ID, Reason: fmt.Sprintf(format, args...)}
	}

	weekdays, err := domain.ParseWeekdays(s.Weekdays)
	if err != nil {
		return invalid("weekdays: %v", err)
	}
	if weekdays.Empty() {
		return invalid("weekday set is empty")
	}

	start, err := parseTimeOfDay(s.StartTime)
	if err != nil {
		return invalid("start time: %v", err)
	}
	end, err := parseTimeOfDay(s.EndTime)
	if err != nil {
		return invalid("end time: %v", err)
	}
	if start > end {
		return invalid("start time %s is after end time %s", s.StartTime, s.EndTime)
	}

	if s.DailyQuota <= 0 {
		return invalid("daily quota must be positive, got %d", s.DailyQuota)
	}
	if s.EffectiveStart.IsZero() {
		return invalid("effective start date is missing")
	}

	w := Window{
		weekdays:  weekdays,
		startSec:  start,
		endSec:    end,
		startDate: civilDate(s.EffectiveStart),
		approved:  s.Approved(),
	}
	if s.EffectiveEnd != nil {
		w.endDate = civilDate(*s.EffectiveEnd)
		if w.endDate < w.startDate {
			return invalid("effective end date is before effective start date")
		}
	}

	return w, nil
}

// Contains reports whether at falls inside the window. at should already be
// expressed in the scheduler's timezone.
func (w Window) Contains(at time.Time) bool {
	if !w.approved {
		return false
	}
	if !w.weekdays.Has(at.Weekday()) {
		return false
	}

	sec := at.Hour()*3600 + at.Minute()*60 + at.Second()
	if sec < w.startSec || sec > w.endSec {
		return false
	}

	day := civilDate(at)
	if day < w.startDate {
		return false
	}
	if w.endDate != 0 && day > w.endDate {
		return false
	}

	return true
}

// IsActive is Parse followed by Contains.
func IsActive(s domain.Schedule, at time.Time) (bool, error) {
	w, err := Parse(s)
	if err != nil {
		return false, err
	}
	return w.Contains(at), nil
}

func parseTimeOfDay(raw string) (int, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
		}
	}
	return 0, fmt.Errorf("cannot parse %q as time of day", raw)
}

// civilDate encodes the calendar date of t, in t's own location, as YYYYMMDD.
func civilDate(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
