package domain

import "time"

type MessageStatus string

const (
	StatusPending MessageStatus = "pending"
	StatusSent    MessageStatus = "sent"
	StatusError   MessageStatus = "error"
)

// legalTransitions lists, for each state, the states it may move to.
// sent is terminal.
var legalTransitions = map[MessageStatus][]MessageStatus{
	StatusPending: {StatusSent, StatusError},
	StatusSent:    nil,
	StatusError:   {StatusPending},
}

// CanTransition reports whether from -> to is a legal message state change.
func CanTransition(from, to MessageStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s MessageStatus) Valid() bool {
	_, ok := legalTransitions[s]
	return ok
}

type Message struct {
	ID                int64         `db:"id" json:"id"`
	CampaignID        int64         `db:"campaign_id" json:"campaignId"`
	Destination       string        `db:"destination" json:"destination"`
	Content           string        `db:"content" json:"content"`
	Status            MessageStatus `db:"status" json:"status"`
	ProviderMessageID *string       `db:"provider_message_id" json:"providerMessageId,omitempty"`
	SentAt            *time.Time    `db:"sent_at" json:"sentAt,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updatedAt"`
}

// MessageFilter narrows admin listings. Nil fields are not applied.
type MessageFilter struct {
	Status     *MessageStatus
	CampaignID *int64
}

type MessageStats struct {
	Pending int64 `db:"pending" json:"pending"`
	Sent    int64 `db:"sent" json:"sent"`
	Error   int64 `db:"error" json:"error"`
}

func (s MessageStats) Total() int64 {
	return s.Pending + s.Sent + s.Error
}

type SentMessageCache struct {
	ProviderMessageID string    `json:"providerMessageId"`
	SentAt            time.Time `json:"sentAt"`
}
