package domain

import "time"

// Origin identifies who asked for a state change.
type Origin string

const (
	OriginScheduler Origin = "scheduler"
	OriginManual    Origin = "manual"
	OriginSystem    Origin = "system"
)

// Transition is one immutable audit row for a message state change.
type Transition struct {
	ID         int64         `db:"id" json:"id"`
	MessageID  int64         `db:"message_id" json:"messageId"`
	FromStatus MessageStatus `db:"from_status" json:"fromStatus"`
	ToStatus   MessageStatus `db:"to_status" json:"toStatus"`
	Origin     Origin        `db:"origin" json:"origin"`
	Detail     string        `db:"detail" json:"detail"`
	ActorID    *string       `db:"actor_id" json:"actorId,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"createdAt"`
}

// TransitionRequest asks the state machine to move one message to a new state.
type TransitionRequest struct {
	MessageID         int64
	To                MessageStatus
	Origin            Origin
	Detail            string
	ActorID           *string
	ProviderMessageID *string
}
