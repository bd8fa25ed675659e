package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/pabloosss/Urlopy/internal/domain/user"
	"github.com/pabloosss/Urlopy/internal/jobs"
	"github.com/pabloosss/Urlopy/internal/notifications"
)

type Queue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, bool, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Config struct {
	PollTimeout time.Duration
}

type Worker struct {
	cfg      Config
	queue    Queue
	users    UserLookup
	notifier notifications.Notifier
	log      *slog.Logger
}

func New(cfg Config, queue Queue, users UserLookup, notifier notifications.Notifier, log *slog.Logger) *Worker {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 2 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		cfg:      cfg,
		queue:    queue,
		users:    users,
		notifier: notifier,
		log:      log,
	}
}

// Run polls the queue until the context is cancelled. A bad job is logged and
// dropped; a delivery failure is logged too. Decisions are already committed
// by the time a notice exists, so there is nothing to roll back here.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil
		default:
		}

		j, ok, err := w.queue.Dequeue(ctx, w.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error("dequeue failed", "err", err)
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}

		if err := w.handle(ctx, j); err != nil {
			w.log.Error("job failed", "job_id", j.ID, "type", j.Type, "err", err)
		}
	}
}

func (w *Worker) handle(ctx context.Context, j jobs.Job) error {
	decoded, err := jobs.DecodePayload(j)
	if err != nil {
		return err
	}

	switch p := decoded.(type) {
	case jobs.DecisionNoticePayload:
		owner, err := w.users.GetByID(ctx, p.OwnerID)
		if err != nil {
			// owner deleted between decision and delivery; drop the notice
			w.log.Warn("notice owner not found", "owner_id", p.OwnerID, "request_id", p.RequestID)
			return nil
		}

		return w.notifier.SendDecisionNotice(ctx, notifications.DecisionNoticeInput{
			Email:     owner.Email,
			Name:      owner.Name,
			RequestID: p.RequestID,
			Status:    p.Status,
			DeciderID: p.DeciderID,
		})

	default:
		return jobs.ErrInvalidJobType
	}
}
