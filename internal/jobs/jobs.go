package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobDecisionNotice JobType = "leave.decision_notice"
)

func (t JobType) IsValid() bool {
	switch t {
	case JobDecisionNotice:
		return true
	default:
		return false
	}
}

var (
	ErrInvalidJobType    = errors.New("invalid job type")
	ErrInvalidJobPayload = errors.New("invalid job payload")
)

// Job is the unit of asynchronous work pushed onto the queue. Payload is raw
// JSON; the worker decodes it based on Type.
type Job struct {
	ID        string    `json:"id"`
	Type      JobType   `json:"type"`
	Payload   []byte    `json:"payload"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewJob(t JobType, payloadJSON []byte) (Job, error) {
	if !t.IsValid() {
		return Job{}, ErrInvalidJobType
	}
	if len(payloadJSON) == 0 {
		return Job{}, ErrInvalidJobPayload
	}

	return Job{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payloadJSON,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DecisionNoticePayload carries the minimum needed to notify about a decision.
// ID-based on purpose; the worker loads current user details itself.
type DecisionNoticePayload struct {
	RequestID string    `json:"requestId"`
	OwnerID   string    `json:"ownerId"`
	DeciderID string    `json:"deciderId"`
	Status    string    `json:"status"`
	DecidedAt time.Time `json:"decidedAt"`
}
