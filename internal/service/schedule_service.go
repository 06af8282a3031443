package service

import (
	"context"
	"time"

	"github.com/onurcolak/campaign-dispatcher/environments"
	"github.com/onurcolak/campaign-dispatcher/internal/domain"
	"github.com/onurcolak/campaign-dispatcher/internal/window"
)

type scheduleLister interface {
	ListActive(ctx context.Context, day time.Time) ([]domain.Schedule, error)
}

type quotaReader interface {
	Read(ctx context.Context, scheduleID int64, day time.Time) (int, error)
}

// ActiveSchedule is a schedule covering today, annotated with whether a tick
// right now would dispatch it and how much of today's quota is used.
type ActiveSchedule struct {
	domain.Schedule
	Eligible      bool   `json:"eligible"`
	InvalidReason string `json:"invalidReason,omitempty"`
	SentToday     int    `json:"sentToday"`
	Remaining     int    `json:"remaining"`
}

type ScheduleService struct {
	schedules scheduleLister
	quotas    quotaReader
	loc       *time.Location
	now       func() time.Time
}

func NewScheduleService(schedules scheduleLister, quotas quotaReader, cfg environments.SchedulerConfig) *ScheduleService {
	return &ScheduleService{
		schedules: schedules,
		quotas:    quotas,
		loc:       cfg.Location(),
		now:       time.Now,
	}
}

func (s *ScheduleService) ActiveSchedules(ctx context.Context) ([]ActiveSchedule, error) {
	now := s.now().In(s.loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	schedules, err := s.schedules.ListActive(ctx, day)
	if err != nil {
		return nil, err
	}

	out := make([]ActiveSchedule, 0, len(schedules))
	for _, sched := range schedules {
		item := ActiveSchedule{Schedule: sched}

		eligible, err := window.IsActive(sched, now)
		if err != nil {
			item.InvalidReason = err.Error()
			out = append(out, item)
			continue
		}
		item.Eligible = eligible

		sent, err := s.quotas.Read(ctx, sched.ID, day)
		if err != nil {
			return nil, err
		}
		item.SentToday = sent
		item.Remaining = max(sched.DailyQuota-sent, 0)

		out = append(out, item)
	}

	return out, nil
}
