// Package dispatch sends one schedule's batch of pending messages.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/onurcolak/campaign-dispatcher/environments"
	"github.com/onurcolak/campaign-dispatcher/internal/domain"
	"github.com/onurcolak/campaign-dispatcher/pkg/events"
	"github.com/onurcolak/campaign-dispatcher/pkg/logger"
)

// Writes that must survive a cancelled tick (state after a confirmed send,
// the quota increment) run on a detached context with this timeout.
const detachedWriteTimeout = 10 * time.Second

// Small internal interfaces so we can test without touching real DB/Redis/gateway.
type channelGateway interface {
	GetChannelStatus(ctx context.Context, tenantID string) (*domain.ChannelState, error)
	SendMessage(ctx context.Context, tenantID, destination, content string) (*domain.GatewaySendResponse, error)
}

type quotaStore interface {
	Read(ctx context.Context, scheduleID int64, day time.Time) (int, error)
	Increment(ctx context.Context, scheduleID int64, day time.Time, amount int) error
}

type pendingSource interface {
	GetPendingByCampaign(ctx context.Context, campaignID int64, limit int) ([]domain.Message, error)
}

type stateMachine interface {
	Transition(ctx context.Context, req domain.TransitionRequest) (*domain.Transition, error)
}

type sentCache interface {
	CacheSentMessage(ctx context.Context, dbID int64, providerMessageID string, sentAt time.Time) error
}

type eventPublisher interface {
	PublishScheduleDispatched(ctx context.Context, event events.ScheduleDispatched) error
}

type Executor struct {
	gateway  channelGateway
	quotas   quotaStore
	messages pendingSource
	machine  stateMachine

	cache     sentCache
	publisher eventPublisher

	delayMin time.Duration
	delayMax time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	loc      *time.Location
}

type Option func(*Executor)

func WithSentCache(c sentCache) Option {
	return func(e *Executor) { e.cache = c }
}

func WithPublisher(p eventPublisher) Option {
	return func(e *Executor) { e.publisher = p }
}

func WithLocation(loc *time.Location) Option {
	return func(e *Executor) { e.loc = loc }
}

func NewExecutor(
	gateway channelGateway,
	quotas quotaStore,
	messages pendingSource,
	machine stateMachine,
	cfg environments.DispatchConfig,
	opts ...Option,
) *Executor {
	e := &Executor{
		gateway:  gateway,
		quotas:   quotas,
		messages: messages,
		machine:  machine,
		delayMin: cfg.DelayMin,
		delayMax: cfg.DelayMax,
		sleep:    sleepContext,
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch sends as many pending messages of the schedule's campaign as
// today's remaining quota allows. A returned error means the schedule could
// not be processed this tick; the report is still filled as far as it got.
func (e *Executor) Dispatch(ctx context.Context, sched domain.Schedule) (domain.DispatchReport, error) {
	now := e.now().In(e.loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)

	report := domain.DispatchReport{
		ScheduleID: sched.ID,
		CampaignID: sched.CampaignID,
		TenantID:   sched.TenantID,
		Day:        day.Format(time.DateOnly),
	}

	// Channel state is asked fresh every time, never cached.
	state, err := e.gateway.GetChannelStatus(ctx, sched.TenantID)
	if err != nil {
		report.Outcome = domain.OutcomeChannelUnavailable
		report.AbortReason = err.Error()
		return report, fmt.Errorf("failed to get channel status for tenant %s: %w", sched.TenantID, err)
	}
	if !state.Connected() {
		report.Outcome = domain.OutcomeChannelUnavailable
		report.AbortReason = fmt.Sprintf("channel status is %s", state.Status)
		logger.Warnf("Schedule %d: tenant %s channel is %s, skipping", sched.ID, sched.TenantID, state.Status)
		return report, nil
	}

	sentToday, err := e.quotas.Read(ctx, sched.ID, day)
	if err != nil {
		report.Outcome = domain.OutcomeAborted
		report.AbortReason = "quota read failed"
		return report, fmt.Errorf("failed to read quota for schedule %d: %w", sched.ID, err)
	}

	available := sched.DailyQuota - sentToday
	if available <= 0 {
		report.Outcome = domain.OutcomeQuotaExhausted
		logger.Infof("Schedule %d: daily quota exhausted (%d/%d)", sched.ID, sentToday, sched.DailyQuota)
		return report, nil
	}
	report.Available = available

	pending, err := e.messages.GetPendingByCampaign(ctx, sched.CampaignID, available)
	if err != nil {
		report.Outcome = domain.OutcomeAborted
		report.AbortReason = "pending fetch failed"
		return report, fmt.Errorf("failed to fetch pending messages for campaign %d: %w", sched.CampaignID, err)
	}
	if len(pending) == 0 {
		report.Outcome = domain.OutcomeNoPending
		logger.Debugf("Schedule %d: no pending messages for campaign %d", sched.ID, sched.CampaignID)
		return report, nil
	}

	logger.Infof("Schedule %d: dispatching %d messages for campaign %d (quota %d/%d used)",
		sched.ID, len(pending), sched.CampaignID, sentToday, sched.DailyQuota)

	report.Outcome = domain.OutcomeCompleted
	report.Results = make([]domain.SendResult, 0, len(pending))

	var recordErr error
	for i := range pending {
		if i > 0 && report.Results[i-1].Success {
			if err := e.sleep(ctx, e.nextDelay()); err != nil {
				report.Outcome = domain.OutcomeAborted
				report.AbortReason = "dispatch cancelled"
				break
			}
		}
		if ctx.Err() != nil {
			report.Outcome = domain.OutcomeAborted
			report.AbortReason = "dispatch cancelled"
			break
		}

		result, abortReason, err := e.deliver(ctx, sched, &pending[i])
		report.Results = append(report.Results, result)
		if result.Success {
			report.Sent++
		} else {
			report.Failed++
		}

		if err != nil {
			recordErr = err
		}
		if abortReason != "" {
			report.Outcome = domain.OutcomeAborted
			report.AbortReason = abortReason
			break
		}
	}

	if report.Sent > 0 {
		incCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedWriteTimeout)
		err := e.quotas.Increment(incCtx, sched.ID, day, report.Sent)
		cancel()
		if err != nil {
			recordErr = errors.Join(recordErr, fmt.Errorf("failed to record quota usage for schedule %d: %w", sched.ID, err))
		}
	}

	e.publish(ctx, report)

	logger.Infof("Schedule %d: %s, %d sent, %d failed", sched.ID, report.Outcome, report.Sent, report.Failed)

	return report, recordErr
}

// deliver sends one message and records its outcome. A non-empty abort reason
// stops the batch; a non-nil error is a state write that must not be masked.
func (e *Executor) deliver(ctx context.Context, sched domain.Schedule, msg *domain.Message) (domain.SendResult, string, error) {
	result := domain.SendResult{MessageDBID: msg.ID}

	resp, err := e.gateway.SendMessage(ctx, sched.TenantID, msg.Destination, msg.Content)
	if err != nil {
		result.Error = err

		switch {
		case domain.IsSystemicGatewayError(err):
			logger.Warnf("Schedule %d: channel unavailable while sending message %d, leaving it pending: %v",
				sched.ID, msg.ID, err)
			return result, fmt.Sprintf("channel unavailable at message %d", msg.ID), nil

		case domain.GatewayErrorKindOf(err) == domain.GatewayTimeout:
			// The provider may have accepted it; see the duplicate-send note in DESIGN.md.
			logger.Warnf("Schedule %d: send of message %d timed out", sched.ID, msg.ID)
			return result, fmt.Sprintf("gateway timeout at message %d", msg.ID), e.markError(ctx, sched, msg, err)

		default:
			logger.Errorf("Schedule %d: failed to send message %d: %v", sched.ID, msg.ID, err)
			if markErr := e.markError(ctx, sched, msg, err); markErr != nil {
				return result, "failed to record message error", markErr
			}
			return result, "", nil
		}
	}

	var providerID *string
	if resp.ProviderMessageID != "" {
		providerID = &resp.ProviderMessageID
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedWriteTimeout)
	defer cancel()

	record, err := e.machine.Transition(recordCtx, domain.TransitionRequest{
		MessageID:         msg.ID,
		To:                domain.StatusSent,
		Origin:            domain.OriginScheduler,
		Detail:            fmt.Sprintf("sent by schedule %d", sched.ID),
		ProviderMessageID: providerID,
	})
	if err != nil {
		logger.Errorf("Schedule %d: message %d was accepted by the gateway but could not be marked sent: %v",
			sched.ID, msg.ID, err)
		result.Error = err
		return result, "failed to record sent state", fmt.Errorf("message %d: %w", msg.ID, err)
	}

	result.Success = true
	result.ProviderMessageID = resp.ProviderMessageID
	result.SentAt = record.CreatedAt

	if e.cache != nil {
		if err := e.cache.CacheSentMessage(recordCtx, msg.ID, resp.ProviderMessageID, record.CreatedAt); err != nil {
			logger.Warnf("Failed to cache message %d to Redis: %v", msg.ID, err)
		}
	}

	logger.Debugf("Schedule %d: sent message %d (providerMessageId: %s)", sched.ID, msg.ID, resp.ProviderMessageID)

	return result, "", nil
}

func (e *Executor) markError(ctx context.Context, sched domain.Schedule, msg *domain.Message, sendErr error) error {
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedWriteTimeout)
	defer cancel()

	_, err := e.machine.Transition(recordCtx, domain.TransitionRequest{
		MessageID: msg.ID,
		To:        domain.StatusError,
		Origin:    domain.OriginScheduler,
		Detail:    fmt.Sprintf("schedule %d: %v", sched.ID, sendErr),
	})
	if err != nil {
		logger.Errorf("Failed to mark message %d as error: %v", msg.ID, err)
		return fmt.Errorf("message %d: %w", msg.ID, err)
	}
	return nil
}

func (e *Executor) publish(ctx context.Context, report domain.DispatchReport) {
	if e.publisher == nil || report.Attempted() == 0 {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedWriteTimeout)
	defer cancel()

	if err := e.publisher.PublishScheduleDispatched(pubCtx, events.NewScheduleDispatched(report, e.now())); err != nil {
		logger.Warnf("Schedule %d: failed to publish dispatch event: %v", report.ScheduleID, err)
	}
}

func (e *Executor) nextDelay() time.Duration {
	if e.delayMax <= e.delayMin {
		return e.delayMin
	}
	return e.delayMin + time.Duration(rand.Int63n(int64(e.delayMax-e.delayMin+1)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
