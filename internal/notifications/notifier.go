package notifications

import "context"

type DecisionNoticeInput struct {
	Email     string
	Name      string
	RequestID string
	Status    string
	DeciderID string
}

// Notifier is whatever delivers decision outcomes to people. The core only
// depends on this interface; email, chat or anything else plugs in behind it.
type Notifier interface {
	SendDecisionNotice(ctx context.Context, input DecisionNoticeInput) error
}
