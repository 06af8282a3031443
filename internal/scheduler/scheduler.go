package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/onurcolak/campaign-dispatcher/environments"
	"github.com/onurcolak/campaign-dispatcher/internal/domain"
	"github.com/onurcolak/campaign-dispatcher/internal/window"
	"github.com/onurcolak/campaign-dispatcher/pkg/logger"
)

const tickLeaseKey = "dispatch:tick-lease"

var (
	ErrTickInProgress = errors.New("a tick is already in progress")
	ErrLeaseHeld      = errors.New("tick lease is held by another instance")
)

// Minimal internal interfaces so the tick loop can be tested with fakes.
type scheduleSource interface {
	ListActive(ctx context.Context, day time.Time) ([]domain.Schedule, error)
}

type dispatcher interface {
	Dispatch(ctx context.Context, sched domain.Schedule) (domain.DispatchReport, error)
}

type tickLease interface {
	AcquireLease(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLease(ctx context.Context, key, token string) error
}

type Scheduler struct {
	schedules scheduleSource
	executor  dispatcher
	lease     tickLease // nil keeps single-flight process-local
	leaseTTL  time.Duration
	loc       *time.Location
	now       func() time.Time

	interval        time.Duration
	alertWebhook    string
	alertThreshold  int // Number of consecutive all-fail ticks before alert
	alertClient     *resty.Client
	lastAlertSentAt time.Time

	// Single-flight guard. Set while a tick runs, whoever started it.
	ticking    atomic.Bool
	ticks      sync.WaitGroup
	cancelTick context.CancelFunc // in-flight tick, guarded by mu

	// Lifetime of manually triggered ticks; cancelled by Shutdown.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	// Internal state
	running   bool
	stopChan  chan struct{}
	doneChan  chan struct{}
	cancelRun context.CancelFunc
	mu        sync.RWMutex

	// Statistics
	lastFireAt   time.Time // last loop fire, manual ticks excluded
	lastRunAt    time.Time
	messagesSent int64
	ticksCount   int64
	skippedTicks int64
	lastTick     *TickSummary

	consecutiveAllFailCount int
}

type Option func(*Scheduler)

// WithLease makes every tick also hold a shared lease, so only one instance
// ticks at a time.
func WithLease(l tickLease) Option {
	return func(s *Scheduler) { s.lease = l }
}

func NewScheduler(
	schedules scheduleSource,
	executor dispatcher,
	cfg environments.SchedulerConfig,
	alert environments.AlertConfig,
	opts ...Option,
) *Scheduler {
	baseCtx, baseCancel := context.WithCancel(context.Background())

	interval := cfg.TickInterval
	if interval <= 0 {
		interval = time.Minute
	}

	s := &Scheduler{
		schedules:      schedules,
		executor:       executor,
		leaseTTL:       cfg.LeaseTTL,
		loc:            cfg.Location(),
		now:            time.Now,
		interval:       interval,
		alertWebhook:   alert.WebhookURL,
		alertThreshold: alert.IterationCount,
		alertClient:    resty.New().SetTimeout(10 * time.Second),
		baseCtx:        baseCtx,
		baseCancel:     baseCancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) StartWithParams(
	ctx context.Context,
	intervalSeconds int,
	alertWebhook string,
	alertThreshold int,
) error {
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}

	s.mu.Lock()
	s.interval = time.Duration(intervalSeconds) * time.Second
	s.alertWebhook = alertWebhook
	s.alertThreshold = alertThreshold
	s.consecutiveAllFailCount = 0
	s.mu.Unlock()

	return s.Start(ctx)
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is already running")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)

	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.cancelRun = cancel
	interval := s.interval
	s.mu.Unlock()

	logger.Infof("Starting scheduler with interval: %v", interval)

	go s.run(runCtx, interval)

	return nil
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration) {
	defer close(s.doneChan)

	s.fire(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Infof("Scheduler running. Next tick in %v", interval)

	for {
		select {
		case <-ticker.C:
			s.fire(ctx)

		case <-s.stopChan:
			logger.Warnf("Scheduler received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Scheduler context cancelled")
			return
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	s.mu.Lock()
	s.lastFireAt = s.now().In(s.loc)
	s.mu.Unlock()

	s.launchTick(ctx)
}

// launchTick starts a tick in the background unless one is already running,
// in which case the tick is dropped.
func (s *Scheduler) launchTick(ctx context.Context) bool {
	if !s.ticking.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.skippedTicks++
		skipped := s.skippedTicks
		s.mu.Unlock()
		logger.Warnf("Previous tick still running, skipping (skipped so far: %d)", skipped)
		return false
	}

	tickCtx, done := s.beginTick(ctx)

	s.ticks.Add(1)
	go func() {
		defer s.ticks.Done()
		defer s.ticking.Store(false)
		defer done()

		if _, err := s.tick(tickCtx); err != nil && !errors.Is(err, ErrLeaseHeld) {
			logger.Errorf("Tick failed: %v", err)
		}
	}()
	return true
}

// beginTick derives the context of the tick that just won the single-flight
// flag and registers its cancel func so Stop can interrupt it. The returned
// func must run before the flag is cleared.
func (s *Scheduler) beginTick(ctx context.Context) (context.Context, func()) {
	tickCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancelTick = cancel
	s.mu.Unlock()

	return tickCtx, func() {
		s.mu.Lock()
		s.cancelTick = nil
		s.mu.Unlock()
		cancel()
	}
}

// TryTrigger starts an immediate tick in the background. It returns
// ErrTickInProgress if a tick is already running.
func (s *Scheduler) TryTrigger() error {
	if !s.launchTick(s.baseCtx) {
		return ErrTickInProgress
	}
	return nil
}

// Tick runs one tick synchronously. It returns ErrTickInProgress without
// doing anything if another tick is running.
func (s *Scheduler) Tick(ctx context.Context) (TickSummary, error) {
	if !s.ticking.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.skippedTicks++
		s.mu.Unlock()
		return TickSummary{}, ErrTickInProgress
	}
	defer s.ticking.Store(false)

	tickCtx, done := s.beginTick(ctx)
	defer done()

	return s.tick(tickCtx)
}

func (s *Scheduler) tick(ctx context.Context) (TickSummary, error) {
	started := s.now().In(s.loc)
	summary := TickSummary{RunID: uuid.NewString(), StartedAt: started}

	if s.lease != nil {
		token, ok, err := s.lease.AcquireLease(ctx, tickLeaseKey, s.leaseTTL)
		if err != nil {
			return summary, fmt.Errorf("failed to acquire tick lease: %w", err)
		}
		if !ok {
			logger.Debugf("Tick lease held elsewhere, skipping tick")
			s.mu.Lock()
			s.skippedTicks++
			s.mu.Unlock()
			return summary, ErrLeaseHeld
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := s.lease.ReleaseLease(releaseCtx, tickLeaseKey, token); err != nil {
				logger.Warnf("Failed to release tick lease: %v", err)
			}
		}()
	}

	s.mu.Lock()
	s.lastRunAt = started
	s.ticksCount++
	tickNumber := s.ticksCount
	s.mu.Unlock()

	logger.Infof("[Tick #%d] Run %s starting at %s", tickNumber, summary.RunID, started.Format(time.RFC3339))

	day := time.Date(started.Year(), started.Month(), started.Day(), 0, 0, 0, 0, s.loc)
	schedules, err := s.schedules.ListActive(ctx, day)
	if err != nil {
		return summary, fmt.Errorf("failed to list active schedules: %w", err)
	}

	for _, sched := range schedules {
		if ctx.Err() != nil {
			logger.Warnf("[Tick #%d] Cancelled, %d schedules left unprocessed", tickNumber, len(schedules)-summary.Evaluated)
			break
		}
		summary.Evaluated++

		active, err := window.IsActive(sched, s.now().In(s.loc))
		if err != nil {
			summary.Invalid++
			logger.Warnf("[Tick #%d] Skipping schedule %d: %v", tickNumber, sched.ID, err)
			continue
		}
		if !active {
			continue
		}

		summary.Eligible++
		report, err := s.dispatchOne(ctx, sched)
		summary.Sent += report.Sent
		summary.Failed += report.Failed
		if err != nil {
			summary.Errors++
			logger.Errorf("[Tick #%d] Schedule %d failed: %v", tickNumber, sched.ID, err)
		}
	}

	summary.FinishedAt = s.now().In(s.loc)
	s.recordTick(tickNumber, summary)

	logger.Infof("[Tick #%d] Done: %d eligible, %d sent, %d failed, %d errors",
		tickNumber, summary.Eligible, summary.Sent, summary.Failed, summary.Errors)

	return summary, nil
}

// dispatchOne isolates a single schedule so a panic in its processing is
// reported as that schedule's error.
func (s *Scheduler) dispatchOne(ctx context.Context, sched domain.Schedule) (report domain.DispatchReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while dispatching schedule %d: %v", sched.ID, r)
		}
	}()
	return s.executor.Dispatch(ctx, sched)
}

func (s *Scheduler) recordTick(tickNumber int64, summary TickSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messagesSent += int64(summary.Sent)
	s.lastTick = &summary

	attempted := summary.Sent + summary.Failed
	if attempted > 0 && summary.Sent == 0 {
		s.consecutiveAllFailCount++
		logger.Warnf("[Tick #%d] All %d attempted sends failed (consecutive count: %d/%d)",
			tickNumber, attempted, s.consecutiveAllFailCount, s.alertThreshold)

		if s.consecutiveAllFailCount >= s.alertThreshold && s.alertThreshold > 0 && s.alertWebhook != "" {
			go s.sendAlert(s.alertWebhook, tickNumber, s.consecutiveAllFailCount, attempted)
		}
		return
	}

	if summary.Sent > 0 {
		if s.consecutiveAllFailCount > 0 {
			logger.Debugf("[Tick #%d] Resetting consecutive failure count (was: %d)",
				tickNumber, s.consecutiveAllFailCount)
		}
		s.consecutiveAllFailCount = 0
	}
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is not running")
		return nil
	}

	s.running = false
	stopChan := s.stopChan
	doneChan := s.doneChan
	cancel := s.cancelRun
	cancelTick := s.cancelTick
	s.mu.Unlock()

	close(stopChan)
	cancel()
	// A manually triggered tick runs outside the loop's context.
	if cancelTick != nil {
		cancelTick()
	}

	<-doneChan
	s.ticks.Wait()

	logger.Infof("Scheduler stopped")
	return nil
}

// Shutdown stops the loop and also cancels manually triggered ticks.
func (s *Scheduler) Shutdown() error {
	s.baseCancel()
	if err := s.Stop(); err != nil {
		return err
	}
	s.ticks.Wait()
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) GetStatus() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SchedulerStatus{
		Running:                 s.running,
		Ticking:                 s.ticking.Load(),
		LastRunAt:               s.lastRunAt,
		MessagesSent:            s.messagesSent,
		TicksCount:              s.ticksCount,
		SkippedTicks:            s.skippedTicks,
		Interval:                s.interval,
		ConsecutiveAllFailCount: s.consecutiveAllFailCount,
		LastAlertSentAt:         s.lastAlertSentAt,
		DistributedLease:        s.lease != nil,
		LastTick:                s.lastTick,
	}

	if s.running && !s.lastFireAt.IsZero() {
		status.NextRunAt = s.lastFireAt.Add(s.interval)
	}

	return status
}

func (s *Scheduler) sendAlert(webhookURL string, tickNumber int64, consecutiveFailures int, attempted int) {
	alertPayload := map[string]any{
		"alert":               "consecutive_all_fail",
		"tickNumber":          tickNumber,
		"consecutiveFailures": consecutiveFailures,
		"attemptedSends":      attempted,
		"timestamp":           time.Now().Format(time.RFC3339),
		"message": fmt.Sprintf(
			"All %d attempted sends failed for %d consecutive ticks",
			attempted,
			consecutiveFailures,
		),
	}

	resp, err := s.alertClient.R().
		SetHeader("Content-Type", "application/json").
		SetBody(alertPayload).
		Post(webhookURL)
	if err != nil {
		logger.Errorf("Failed to send alert to webhook: %v", err)
		return
	}

	if resp.StatusCode() == 200 || resp.StatusCode() == 204 {
		s.mu.Lock()
		s.lastAlertSentAt = time.Now()
		s.mu.Unlock()
		logger.Infof("Alert sent successfully to %s (consecutive failures: %d)", webhookURL, consecutiveFailures)
	} else {
		logger.Warnf("Alert webhook returned status %d", resp.StatusCode())
	}
}

// TickSummary describes one completed tick.
type TickSummary struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Evaluated  int       `json:"evaluated"`
	Eligible   int       `json:"eligible"`
	Invalid    int       `json:"invalid"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Errors     int       `json:"errors"`
}

type SchedulerStatus struct {
	Running                 bool          `json:"running"`
	Ticking                 bool          `json:"ticking"`
	LastRunAt               time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt               time.Time     `json:"nextRunAt,omitempty"`
	MessagesSent            int64         `json:"messagesSent"`
	TicksCount              int64         `json:"ticksCount"`
	SkippedTicks            int64         `json:"skippedTicks"`
	Interval                time.Duration `json:"interval"`
	ConsecutiveAllFailCount int           `json:"consecutiveAllFailCount"`
	LastAlertSentAt         time.Time     `json:"lastAlertSentAt,omitempty"`
	DistributedLease        bool          `json:"distributedLease"`
	LastTick                *TickSummary  `json:"lastTick,omitempty"`
}
