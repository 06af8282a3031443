package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/onurcolak/campaign-dispatcher/environments"
	"github.com/onurcolak/campaign-dispatcher/internal/domain"
	"github.com/onurcolak/campaign-dispatcher/pkg/logger"
)

const RoutingKeyScheduleDispatched = "schedule.dispatched"

// ScheduleDispatched is the summary published after a schedule's batch.
type ScheduleDispatched struct {
	ScheduleID  int64                  `json:"scheduleId"`
	CampaignID  int64                  `json:"campaignId"`
	TenantID    string                 `json:"tenantId"`
	Day         string                 `json:"day"`
	Outcome     domain.DispatchOutcome `json:"outcome"`
	Sent        int                    `json:"sent"`
	Failed      int                    `json:"failed"`
	AbortReason string                 `json:"abortReason,omitempty"`
	OccurredAt  time.Time              `json:"occurredAt"`
}

func NewScheduleDispatched(report domain.DispatchReport, at time.Time) ScheduleDispatched {
	return ScheduleDispatched{
		ScheduleID:  report.ScheduleID,
		CampaignID:  report.CampaignID,
		TenantID:    report.TenantID,
		Day:         report.Day,
		Outcome:     report.Outcome,
		Sent:        report.Sent,
		Failed:      report.Failed,
		AbortReason: report.AbortReason,
		OccurredAt:  at.UTC(),
	}
}

// Publisher sends dispatch events to a durable topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	mu       sync.Mutex
}

func NewPublisher(cfg environments.EventsConfig) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	logger.Infof("Connected to RabbitMQ, publishing to exchange %s", cfg.Exchange)

	return &Publisher{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

func (p *Publisher) PublishScheduleDispatched(ctx context.Context, event ScheduleDispatched) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(p.exchange, RoutingKeyScheduleDispatched, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", RoutingKeyScheduleDispatched, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
