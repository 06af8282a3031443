package domain

import (
	"fmt"
	"strings"
	"time"
)

type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// Schedule is an approved recurring sending window for one campaign.
// Weekdays is a comma separated list ("mon,tue,fri"); StartTime and EndTime
// are times of day ("09:00:00").
type Schedule struct {
	ID             int64         `db:"id" json:"id"`
	CampaignID     int64         `db:"campaign_id" json:"campaignId"`
	TenantID       string        `db:"tenant_id" json:"tenantId"`
	Weekdays       string        `db:"weekdays" json:"weekdays"`
	StartTime      string        `db:"start_time" json:"startTime"`
	EndTime        string        `db:"end_time" json:"endTime"`
	DailyQuota     int           `db:"daily_quota" json:"dailyQuota"`
	ApprovalState  ApprovalState `db:"approval_state" json:"approvalState"`
	EffectiveStart time.Time     `db:"effective_start" json:"effectiveStart"`
	EffectiveEnd   *time.Time    `db:"effective_end" json:"effectiveEnd,omitempty"`
}

func (s Schedule) Approved() bool {
	return s.ApprovalState == ApprovalApproved
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// WeekdaySet is a bitmask of time.Weekday values.
type WeekdaySet uint8

func (w WeekdaySet) Has(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

func (w WeekdaySet) Empty() bool {
	return w == 0
}

// ParseWeekdays parses a comma separated weekday list. Names are case
// insensitive and may be abbreviated ("mon") or full ("monday").
func ParseWeekdays(raw string) (WeekdaySet, error) {
	var set WeekdaySet
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		day, ok := weekdayNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown weekday %q", part)
		}
		set |= 1 << uint(day)
	}
	return set, nil
}
