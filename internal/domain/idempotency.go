package domain

import "time"

// OutcomeStatus summarises what processing an event did downstream.
type OutcomeStatus string

const (
	OutcomeDelivered   OutcomeStatus = "delivered"
	OutcomeOrderFailed OutcomeStatus = "order_failed"
	OutcomeForwarded   OutcomeStatus = "forwarded"
	OutcomeIgnored     OutcomeStatus = "ignored"
)

// Outcome is recorded against an event key once its side effect has completed.
type Outcome struct {
	Status     OutcomeStatus `json:"status"`
	Detail     string        `json:"detail,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}

func NewOutcome(status OutcomeStatus, detail string) Outcome {
	return Outcome{
		Status:     status,
		Detail:     detail,
		RecordedAt: time.Now().UTC(),
	}
}

// IdempotencyRecord is the stored state of one event key.
// Outcome is nil while the first delivery is still dispatching.
type IdempotencyRecord struct {
	EventKey    string
	FirstSeenAt time.Time
	LockedAt    *time.Time
	LockToken   string
	Outcome     *Outcome
}

// Reservation is the result of the atomic check-and-reserve step. Token
// identifies a fresh reservation and is handed back on release.
type Reservation struct {
	Fresh bool
	Token string
	Prior *Outcome
}

// InFlight reports a duplicate whose first delivery has not recorded an outcome yet.
func (r Reservation) InFlight() bool {
	return !r.Fresh && r.Prior == nil
}
