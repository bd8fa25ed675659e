package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier is the default delivery: it just logs. Good enough for dev and
// for proving the pipeline end to end.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendDecisionNotice(ctx context.Context, in DecisionNoticeInput) error {
	n.log.InfoContext(ctx, "notification.decision_notice",
		"email", in.Email,
		"name", in.Name,
		"request_id", in.RequestID,
		"status", in.Status,
		"decider_id", in.DeciderID,
	)
	return nil
}
