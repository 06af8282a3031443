package domain

import "time"

// DispatchOutcome summarizes how one schedule's dispatch ended.
type DispatchOutcome string

const (
	OutcomeCompleted          DispatchOutcome = "completed"
	OutcomeNoPending          DispatchOutcome = "no_pending"
	OutcomeQuotaExhausted     DispatchOutcome = "quota_exhausted"
	OutcomeChannelUnavailable DispatchOutcome = "channel_unavailable"
	OutcomeAborted            DispatchOutcome = "aborted"
)

type SendResult struct {
	MessageDBID       int64
	ProviderMessageID string
	Success           bool
	Error             error
	SentAt            time.Time
}

type DispatchReport struct {
	ScheduleID  int64           `json:"scheduleId"`
	CampaignID  int64           `json:"campaignId"`
	TenantID    string          `json:"tenantId"`
	Day         string          `json:"day"`
	Outcome     DispatchOutcome `json:"outcome"`
	Available   int             `json:"available"`
	Sent        int             `json:"sent"`
	Failed      int             `json:"failed"`
	AbortReason string          `json:"abortReason,omitempty"`
	Results     []SendResult    `json:"-"`
}

func (r DispatchReport) Attempted() int {
	return len(r.Results)
}
