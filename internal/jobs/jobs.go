// Package jobs runs the periodic maintenance tasks on an asynq worker.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"swap-service/internal/services"
)

const (
	TypeUnreadSweep  = "unread:sweep"
	TypeAttachmentGC = "attachments:gc"

	QueueMaintenance = "maintenance"
)

// UnreadSweeper mails unread digests.
type UnreadSweeper interface {
	NotifyUnread(ctx context.Context) (services.SweepSummary, error)
}

// OrphanSweeper removes attachments that were never linked.
type OrphanSweeper interface {
	SweepOrphans(ctx context.Context, ttl time.Duration) (int, error)
}

type attachmentGCPayload struct {
	TTLSeconds int64 `json:"ttl_seconds"`
}

// NewAttachmentGCTask builds the task deleting pending attachments older than ttl.
func NewAttachmentGCTask(ttl time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(attachmentGCPayload{TTLSeconds: int64(ttl / time.Second)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAttachmentGC, payload), nil
}

// HandleUnreadSweep runs one digest sweep.
func HandleUnreadSweep(sweeper UnreadSweeper) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		summary, err := sweeper.NotifyUnread(ctx)
		if err != nil {
			return fmt.Errorf("unread sweep: %w", err)
		}
		log.Printf("job done type=%s recipients=%d notified=%d failed=%d", t.Type(), summary.Recipients, summary.Notified, summary.Failed)
		return nil
	}
}

// HandleAttachmentGC deletes stale pending attachments.
func HandleAttachmentGC(sweeper OrphanSweeper) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p attachmentGCPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil || p.TTLSeconds <= 0 {
			return fmt.Errorf("attachment gc: bad payload %q: %w", t.Payload(), asynq.SkipRetry)
		}
		removed, err := sweeper.SweepOrphans(ctx, time.Duration(p.TTLSeconds)*time.Second)
		if err != nil {
			return fmt.Errorf("attachment gc: %w", err)
		}
		log.Printf("job done type=%s removed=%d", t.Type(), removed)
		return nil
	}
}

// Config selects the Redis backend and the schedules.
type Config struct {
	RedisURL         string
	SweepCron        string
	AttachmentGCCron string
	AttachmentTTL    time.Duration
	Concurrency      int
}

// Runner owns the asynq scheduler enqueuing periodic tasks and the server
// executing them.
type Runner struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

// NewRunner wires the periodic tasks. It does not contact Redis until Run.
func NewRunner(cfg Config, unread UnreadSweeper, orphans OrphanSweeper) (*Runner, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse REDIS_URL: %w", err)
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeUnreadSweep, HandleUnreadSweep(unread))
	mux.HandleFunc(TypeAttachmentGC, HandleAttachmentGC(orphans))

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueMaintenance: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("asynq error: type=%s err=%v", task.Type(), err)
		}),
	})

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := scheduler.Register(cfg.SweepCron, asynq.NewTask(TypeUnreadSweep, nil),
		asynq.Queue(QueueMaintenance), asynq.MaxRetry(0), asynq.Unique(time.Minute)); err != nil {
		return nil, fmt.Errorf("asynq: schedule %s %q: %w", TypeUnreadSweep, cfg.SweepCron, err)
	}
	gc, err := NewAttachmentGCTask(cfg.AttachmentTTL)
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(cfg.AttachmentGCCron, gc,
		asynq.Queue(QueueMaintenance), asynq.MaxRetry(1), asynq.Unique(time.Minute)); err != nil {
		return nil, fmt.Errorf("asynq: schedule %s %q: %w", TypeAttachmentGC, cfg.AttachmentGCCron, err)
	}

	return &Runner{server: server, scheduler: scheduler, mux: mux}, nil
}

// Run starts the worker and the scheduler and blocks until ctx is
// canceled, then shuts both down.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.server.Start(r.mux); err != nil {
		return err
	}
	if err := r.scheduler.Start(); err != nil {
		r.server.Shutdown()
		return err
	}
	log.Printf("jobs started queue=%s", QueueMaintenance)
	<-ctx.Done()
	r.scheduler.Shutdown()
	r.server.Shutdown()
	return nil
}
