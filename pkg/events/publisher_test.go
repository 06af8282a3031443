package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/onurcolak/campaign-dispatcher/internal/domain"
)

func TestNewScheduleDispatched_CopiesReport(t *testing.T) {
	report := domain.DispatchReport{
		ScheduleID:  7,
		CampaignID:  70,
		TenantID:    "tenant-a",
		Day:         "2024-03-04",
		Outcome:     domain.OutcomeAborted,
		Sent:        1,
		Failed:      1,
		AbortReason: "channel not ready",
		Results:     []domain.SendResult{{Success: true}, {Success: false, Error: errors.New("x")}},
	}
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.FixedZone("CLT", -3*3600))

	event := NewScheduleDispatched(report, at)

	if event.OccurredAt.Location() != time.UTC {
		t.Errorf("expected OccurredAt in UTC, got %v", event.OccurredAt.Location())
	}

	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}

	if decoded["outcome"] != "aborted" {
		t.Errorf("expected outcome=aborted, got %v", decoded["outcome"])
	}
	if decoded["abortReason"] != "channel not ready" {
		t.Errorf("expected abortReason to be carried, got %v", decoded["abortReason"])
	}
	if decoded["sent"] != float64(1) {
		t.Errorf("expected sent=1, got %v", decoded["sent"])
	}
}
