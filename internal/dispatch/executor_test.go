package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/onurcolak/campaign-dispatcher/environments"
	"github.com/onurcolak/campaign-dispatcher/internal/domain"
	"github.com/onurcolak/campaign-dispatcher/pkg/events"
)

//
// Test fakes – only for this file.
//

type fakeGateway struct {
	status    domain.ChannelStatus
	statusErr error
	sendErrs  map[string]error

	statusCalls int
	sent        []string
}

func (g *fakeGateway) GetChannelStatus(ctx context.Context, tenantID string) (*domain.ChannelState, error) {
	g.statusCalls++
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	return &domain.ChannelState{TenantID: tenantID, Status: g.status}, nil
}

func (g *fakeGateway) SendMessage(ctx context.Context, tenantID, destination, content string) (*domain.GatewaySendResponse, error) {
	g.sent = append(g.sent, destination)
	if err := g.sendErrs[destination]; err != nil {
		return nil, err
	}
	return &domain.GatewaySendResponse{ProviderMessageID: "prov-" + destination}, nil
}

type fakeQuota struct {
	counts     map[int64]int
	increments []int
	readErr    error
}

func (q *fakeQuota) Read(ctx context.Context, scheduleID int64, day time.Time) (int, error) {
	if q.readErr != nil {
		return 0, q.readErr
	}
	return q.counts[scheduleID], nil
}

func (q *fakeQuota) Increment(ctx context.Context, scheduleID int64, day time.Time, amount int) error {
	if q.counts == nil {
		q.counts = make(map[int64]int)
	}
	q.counts[scheduleID] += amount
	q.increments = append(q.increments, amount)
	return nil
}

// fakeStore holds messages and applies the real transition table.
type fakeStore struct {
	messages    map[int64]*domain.Message
	transitions []domain.Transition
	fetchLimits []int
}

func newFakeStore(campaignID int64, n int) *fakeStore {
	s := &fakeStore{messages: make(map[int64]*domain.Message)}
	for i := 1; i <= n; i++ {
		id := int64(i)
		s.messages[id] = &domain.Message{
			ID:          id,
			CampaignID:  campaignID,
			Destination: fmt.Sprintf("+5691000000%d", i),
			Content:     fmt.Sprintf("message %d", i),
			Status:      domain.StatusPending,
		}
	}
	return s
}

func (s *fakeStore) GetPendingByCampaign(ctx context.Context, campaignID int64, limit int) ([]domain.Message, error) {
	s.fetchLimits = append(s.fetchLimits, limit)

	var out []domain.Message
	for _, m := range s.messages {
		if m.CampaignID == campaignID && m.Status == domain.StatusPending {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) Transition(ctx context.Context, req domain.TransitionRequest) (*domain.Transition, error) {
	m, ok := s.messages[req.MessageID]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	if !domain.CanTransition(m.Status, req.To) {
		return nil, &domain.IllegalTransitionError{MessageID: m.ID, From: m.Status, To: req.To}
	}

	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	record := domain.Transition{
		ID:         int64(len(s.transitions) + 1),
		MessageID:  m.ID,
		FromStatus: m.Status,
		ToStatus:   req.To,
		Origin:     req.Origin,
		Detail:     req.Detail,
		CreatedAt:  now,
	}
	s.transitions = append(s.transitions, record)

	m.Status = req.To
	if req.To == domain.StatusSent {
		m.SentAt = &now
		m.ProviderMessageID = req.ProviderMessageID
	} else {
		m.SentAt = nil
		m.ProviderMessageID = nil
	}
	return &record, nil
}

func (s *fakeStore) status(id int64) domain.MessageStatus {
	return s.messages[id].Status
}

type fakeCache struct {
	cached map[int64]string
}

func (c *fakeCache) CacheSentMessage(ctx context.Context, dbID int64, providerMessageID string, sentAt time.Time) error {
	if c.cached == nil {
		c.cached = make(map[int64]string)
	}
	c.cached[dbID] = providerMessageID
	return nil
}

type fakePublisher struct {
	published []events.ScheduleDispatched
}

func (p *fakePublisher) PublishScheduleDispatched(ctx context.Context, event events.ScheduleDispatched) error {
	p.published = append(p.published, event)
	return nil
}

type fixture struct {
	gateway *fakeGateway
	quota   *fakeQuota
	store   *fakeStore
	sleeps  []time.Duration
	exec    *Executor
}

func newFixture(pending int) *fixture {
	f := &fixture{
		gateway: &fakeGateway{status: domain.ChannelConnected},
		quota:   &fakeQuota{counts: map[int64]int{}},
		store:   newFakeStore(70, pending),
	}
	f.exec = NewExecutor(f.gateway, f.quota, f.store, f.store, environments.DispatchConfig{
		DelayMin: 2 * time.Second,
		DelayMax: 6 * time.Second,
	})
	f.exec.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return ctx.Err()
	}
	f.exec.now = func() time.Time { return time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC) }
	return f
}

func testSchedule(quota int) domain.Schedule {
	return domain.Schedule{
		ID:             7,
		CampaignID:     70,
		TenantID:       "tenant-a",
		Weekdays:       "mon",
		StartTime:      "09:00:00",
		EndTime:        "13:00:00",
		DailyQuota:     quota,
		ApprovalState:  domain.ApprovalApproved,
		EffectiveStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func dest(i int) string {
	return fmt.Sprintf("+5691000000%d", i)
}

//
// Tests
//

func TestDispatch_SendsPendingInFIFOOrder(t *testing.T) {
	f := newFixture(3)
	cache := &fakeCache{}
	f.exec.cache = cache

	report, err := f.exec.Dispatch(context.Background(), testSchedule(10))
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	if report.Outcome != domain.OutcomeCompleted {
		t.Fatalf("expected completed, got %s", report.Outcome)
	}
	if report.Sent != 3 || report.Failed != 0 {
		t.Fatalf("expected 3 sent / 0 failed, got %d / %d", report.Sent, report.Failed)
	}

	want := []string{dest(1), dest(2), dest(3)}
	if fmt.Sprint(f.gateway.sent) != fmt.Sprint(want) {
		t.Fatalf("expected send order %v, got %v", want, f.gateway.sent)
	}

	for id := int64(1); id <= 3; id++ {
		m := f.store.messages[id]
		if m.Status != domain.StatusSent {
			t.Errorf("message %d: expected sent, got %s", id, m.Status)
		}
		if m.SentAt == nil || m.ProviderMessageID == nil {
			t.Errorf("message %d: expected sentAt and provider id to be set", id)
		}
	}

	if len(f.quota.increments) != 1 || f.quota.increments[0] != 3 {
		t.Fatalf("expected a single quota increment of 3, got %v", f.quota.increments)
	}
	if len(f.sleeps) != 2 {
		t.Fatalf("expected 2 anti-flood delays between 3 sends, got %d", len(f.sleeps))
	}
	for _, d := range f.sleeps {
		if d < 2*time.Second || d > 6*time.Second {
			t.Errorf("delay %v outside [2s, 6s]", d)
		}
	}
	if len(cache.cached) != 3 {
		t.Errorf("expected 3 cached sends, got %d", len(cache.cached))
	}
}

func TestDispatch_FetchesNoMoreThanRemainingQuota(t *testing.T) {
	f := newFixture(5)
	f.quota.counts[7] = 3

	report, err := f.exec.Dispatch(context.Background(), testSchedule(5))
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	if len(f.store.fetchLimits) != 1 || f.store.fetchLimits[0] != 2 {
		t.Fatalf("expected pending fetch limited to 2, got %v", f.store.fetchLimits)
	}
	if report.Sent != 2 {
		t.Fatalf("expected 2 sent, got %d", report.Sent)
	}
	if f.quota.counts[7] != 5 {
		t.Fatalf("expected quota counter to reach exactly 5, got %d", f.quota.counts[7])
	}
	for id := int64(3); id <= 5; id++ {
		if f.store.status(id) != domain.StatusPending {
			t.Errorf("message %d: expected pending, got %s", id, f.store.status(id))
		}
	}
}

func TestDispatch_ExhaustedQuotaIsIdempotent(t *testing.T) {
	f := newFixture(3)
	sched := testSchedule(2)

	if _, err := f.exec.Dispatch(context.Background(), sched); err != nil {
		t.Fatalf("first Dispatch returned error: %v", err)
	}
	sentAfterFirst := len(f.gateway.sent)
	incrementsAfterFirst := len(f.quota.increments)

	report, err := f.exec.Dispatch(context.Background(), sched)
	if err != nil {
		t.Fatalf("second Dispatch returned error: %v", err)
	}

	if report.Outcome != domain.OutcomeQuotaExhausted {
		t.Fatalf("expected quota_exhausted, got %s", report.Outcome)
	}
	if len(f.gateway.sent) != sentAfterFirst {
		t.Fatalf("expected no additional sends, got %d more", len(f.gateway.sent)-sentAfterFirst)
	}
	if len(f.quota.increments) != incrementsAfterFirst {
		t.Fatalf("expected no additional quota increments")
	}
	if len(f.store.fetchLimits) != 1 {
		t.Fatalf("expected pending fetch to be skipped when quota is exhausted")
	}
}

func TestDispatch_ChannelNotReadyMidBatchAbortsAndKeepsRemainingPending(t *testing.T) {
	f := newFixture(3)
	f.gateway.sendErrs = map[string]error{
		dest(2): &domain.GatewayError{Kind: domain.GatewayChannelNotReady, StatusCode: 409, Err: errors.New("session closed")},
	}

	report, err := f.exec.Dispatch(context.Background(), testSchedule(10))
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	if report.Outcome != domain.OutcomeAborted {
		t.Fatalf("expected aborted, got %s", report.Outcome)
	}
	if f.store.status(1) != domain.StatusSent {
		t.Errorf("message 1: expected sent, got %s", f.store.status(1))
	}
	if f.store.status(2) != domain.StatusPending {
		t.Errorf("message 2: expected pending, got %s", f.store.status(2))
	}
	if f.store.status(3) != domain.StatusPending {
		t.Errorf("message 3: expected pending, got %s", f.store.status(3))
	}
	if len(f.gateway.sent) != 2 {
		t.Errorf("expected message 3 never to reach the gateway, got sends %v", f.gateway.sent)
	}
	if len(f.quota.increments) != 1 || f.quota.increments[0] != 1 {
		t.Errorf("expected quota increment of 1, got %v", f.quota.increments)
	}
}

func TestDispatch_UnreachableGatewayLeavesMessagePending(t *testing.T) {
	f := newFixture(2)
	f.gateway.sendErrs = map[string]error{
		dest(1): &domain.GatewayError{Kind: domain.GatewayUnreachable, Err: errors.New("dial tcp: i/o timeout")},
	}

	report, err := f.exec.Dispatch(context.Background(), testSchedule(10))
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	if report.Outcome != domain.OutcomeAborted {
		t.Fatalf("expected aborted, got %s", report.Outcome)
	}
	for _, id := range []int64{1, 2} {
		if f.store.status(id) != domain.StatusPending {
			t.Errorf("message %d: expected pending, got %s", id, f.store.status(id))
		}
	}
	if len(f.store.transitions) != 0 {
		t.Errorf("expected no state changes, got %d", len(f.store.transitions))
	}
}

func TestDispatch_ProviderErrorMarksOneMessageAndContinues(t *testing.T) {
	f := newFixture(3)
	f.gateway.sendErrs = map[string]error{
		dest(2): &domain.GatewayError{Kind: domain.GatewayValidation, StatusCode: 422, Err: errors.New("invalid number")},
	}

	report, err := f.exec.Dispatch(context.Background(), testSchedule(10))
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	if report.Outcome != domain.OutcomeCompleted {
		t.Fatalf("expected completed, got %s", report.Outcome)
	}
	if report.Sent != 2 || report.Failed != 1 {
		t.Fatalf("expected 2 sent / 1 failed, got %d / %d", report.Sent, report.Failed)
	}
	if f.store.status(2) != domain.StatusError {
		t.Errorf("message 2: expected error, got %s", f.store.status(2))
	}
	if f.store.messages[2].SentAt != nil {
		t.Errorf("message 2: sentAt must stay nil on error")
	}
	if f.store.status(3) != domain.StatusSent {
		t.Errorf("message 3: expected sent, got %s", f.store.status(3))
	}
	// One delay after message 1; none after the failure of message 2.
	if len(f.sleeps) != 1 {
		t.Errorf("expected 1 delay, got %d", len(f.sleeps))
	}
}

func TestDispatch_TimeoutMarksErrorAndAborts(t *testing.T) {
	f := newFixture(2)
	f.gateway.sendErrs = map[string]error{
		dest(1): &domain.GatewayError{Kind: domain.GatewayTimeout, Err: context.DeadlineExceeded},
	}

	report, err := f.exec.Dispatch(context.Background(), testSchedule(10))
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	if report.Outcome != domain.OutcomeAborted {
		t.Fatalf("expected aborted, got %s", report.Outcome)
	}
	if f.store.status(1) != domain.StatusError {
		t.Errorf("message 1: expected error, got %s", f.store.status(1))
	}
	if f.store.status(2) != domain.StatusPending {
		t.Errorf("message 2: expected pending, got %s", f.store.status(2))
	}
	if len(f.quota.increments) != 0 {
		t.Errorf("expected no quota increments, got %v", f.quota.increments)
	}
}

func TestDispatch_NonConnectedChannelBlocksEverything(t *testing.T) {
	statuses := []domain.ChannelStatus{
		domain.ChannelConnecting,
		domain.ChannelDisconnected,
		domain.ChannelAwaitingAuthorization,
		domain.ChannelError,
	}

	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(3)
			f.gateway.status = status

			report, err := f.exec.Dispatch(context.Background(), testSchedule(10))
			if err != nil {
				t.Fatalf("Dispatch returned error: %v", err)
			}

			if report.Outcome != domain.OutcomeChannelUnavailable {
				t.Fatalf("expected channel_unavailable, got %s", report.Outcome)
			}
			if len(f.gateway.sent) != 0 {
				t.Fatalf("expected zero sends, got %d", len(f.gateway.sent))
			}
			if len(f.quota.increments) != 0 {
				t.Fatalf("expected zero quota mutations")
			}
			if len(f.store.transitions) != 0 {
				t.Fatalf("expected zero state transitions")
			}
		})
	}
}

func TestDispatch_StatusCheckFailureReturnsError(t *testing.T) {
	f := newFixture(3)
	f.gateway.statusErr = &domain.GatewayError{Kind: domain.GatewayUnreachable, Err: errors.New("connection refused")}

	report, err := f.exec.Dispatch(context.Background(), testSchedule(10))
	if err == nil {
		t.Fatalf("expected error when channel status cannot be read")
	}
	if domain.GatewayErrorKindOf(err) != domain.GatewayUnreachable {
		t.Errorf("expected wrapped unreachable error, got %v", err)
	}
	if report.Outcome != domain.OutcomeChannelUnavailable {
		t.Errorf("expected channel_unavailable, got %s", report.Outcome)
	}
	if len(f.store.fetchLimits) != 0 || len(f.gateway.sent) != 0 {
		t.Errorf("expected no fetch and no sends")
	}
}

func TestDispatch_StatusIsCheckedOnEveryInvocation(t *testing.T) {
	f := newFixture(0)

	for i := 0; i < 3; i++ {
		if _, err := f.exec.Dispatch(context.Background(), testSchedule(10)); err != nil {
			t.Fatalf("Dispatch returned error: %v", err)
		}
	}

	if f.gateway.statusCalls != 3 {
		t.Fatalf("expected 3 status calls, got %d", f.gateway.statusCalls)
	}
}

func TestDispatch_AuditRecordPerStateChange(t *testing.T) {
	f := newFixture(3)
	f.gateway.sendErrs = map[string]error{
		dest(3): &domain.GatewayError{Kind: domain.GatewayProvider, StatusCode: 500, Err: errors.New("boom")},
	}

	if _, err := f.exec.Dispatch(context.Background(), testSchedule(10)); err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	perMessage := map[int64]int{}
	for _, tr := range f.store.transitions {
		perMessage[tr.MessageID]++
		if tr.Origin != domain.OriginScheduler {
			t.Errorf("expected origin scheduler, got %s", tr.Origin)
		}
	}
	for id := int64(1); id <= 3; id++ {
		if perMessage[id] != 1 {
			t.Errorf("message %d: expected exactly 1 transition record, got %d", id, perMessage[id])
		}
	}
}

func TestDispatch_IllegalTransitionIsSurfaced(t *testing.T) {
	f := newFixture(2)
	// Another worker already sent message 1 after it was fetched.
	f.exec.messages = pendingSourceFunc(func(ctx context.Context, campaignID int64, limit int) ([]domain.Message, error) {
		msgs, err := f.store.GetPendingByCampaign(ctx, campaignID, limit)
		f.store.messages[1].Status = domain.StatusSent
		return msgs, err
	})

	report, err := f.exec.Dispatch(context.Background(), testSchedule(10))

	var illegal *domain.IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalTransitionError to be surfaced, got %v", err)
	}
	if report.Outcome != domain.OutcomeAborted {
		t.Errorf("expected aborted, got %s", report.Outcome)
	}
	if len(f.quota.increments) != 0 {
		t.Errorf("unrecorded sends must not consume quota, got %v", f.quota.increments)
	}
}

func TestDispatch_CancelledDuringDelayLeavesRestPending(t *testing.T) {
	f := newFixture(3)
	ctx, cancel := context.WithCancel(context.Background())
	f.exec.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	report, err := f.exec.Dispatch(ctx, testSchedule(10))
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	if report.Outcome != domain.OutcomeAborted {
		t.Fatalf("expected aborted, got %s", report.Outcome)
	}
	if report.Sent != 1 {
		t.Fatalf("expected 1 sent before cancellation, got %d", report.Sent)
	}
	if len(f.quota.increments) != 1 || f.quota.increments[0] != 1 {
		t.Fatalf("expected confirmed send to be counted despite cancellation, got %v", f.quota.increments)
	}
	if f.store.status(2) != domain.StatusPending || f.store.status(3) != domain.StatusPending {
		t.Fatalf("expected messages 2 and 3 to stay pending")
	}
}

func TestDispatch_PublishesSummary(t *testing.T) {
	f := newFixture(2)
	pub := &fakePublisher{}
	f.exec.publisher = pub

	if _, err := f.exec.Dispatch(context.Background(), testSchedule(10)); err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.published))
	}
	event := pub.published[0]
	if event.ScheduleID != 7 || event.Sent != 2 || event.Day != "2024-03-04" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestNextDelay_DegenerateRange(t *testing.T) {
	e := &Executor{delayMin: time.Second, delayMax: time.Second}
	if d := e.nextDelay(); d != time.Second {
		t.Fatalf("expected 1s, got %v", d)
	}
}

type pendingSourceFunc func(ctx context.Context, campaignID int64, limit int) ([]domain.Message, error)

func (f pendingSourceFunc) GetPendingByCampaign(ctx context.Context, campaignID int64, limit int) ([]domain.Message, error) {
	return f(ctx, campaignID, limit)
}
