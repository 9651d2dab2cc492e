package resync

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"receptionist_backend/internal/classify"
	"receptionist_backend/internal/dashboard"
	"receptionist_backend/internal/session"
	"receptionist_backend/platform/config"
	"receptionist_backend/platform/logger"
)

// Store is the session surface the worker needs.
type Store interface {
	Get(ctx context.Context, callID string) (*session.CallSession, error)
	MarkSynced(ctx context.Context, callID string) error
	ListUnsynced(ctx context.Context, limit int) ([]string, error)
}

// Syncer re-delivers a classified session downstream.
type Syncer interface {
	Send(ctx context.Context, s *session.CallSession, cls classify.Classification) dashboard.SendResult
}

// Worker consumes deferred re-sync tasks: reload the session, re-derive
// the classification, re-send, mark synced. Classification is recomputed
// rather than stored, so a resync always reflects the latest session state.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	store  Store
	dash   Syncer
	log    *logger.Logger
}

// NewWorker builds the consume side of the re-sync queue.
func NewWorker(cfg config.ResyncConfig, store Store, dash Syncer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		store:  store,
		dash:   dash,
		log:    log,
	}
	mux.HandleFunc(TaskDashboardResync, w.handleDashboardResync)

	return w, nil
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("resync worker stopped", "error", err)
	}
}

// NewSweeper builds a worker with no queue connection, for one-shot sweeps
// of unsynced sessions. Run is a no-op on a sweeper.
func NewSweeper(store Store, dash Syncer, log *logger.Logger) *Worker {
	return &Worker{store: store, dash: dash, log: log}
}

func (w *Worker) handleDashboardResync(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDashboardResyncPayload(task)
	if err != nil {
		return err
	}
	return w.Resync(ctx, payload.CallID)
}

// Resync re-delivers one call. Already-synced and deleted sessions are
// treated as done; a retriable failure is returned so asynq backs off and
// retries, a terminal failure is dropped after logging.
func (w *Worker) Resync(ctx context.Context, callID string) error {
	cs, err := w.store.Get(ctx, callID)
	if errors.Is(err, session.ErrNotFound) {
		w.log.WithCallID(callID).Warn("resync skipped, session gone")
		return nil
	}
	if err != nil {
		return err
	}
	if cs.Synced {
		return nil
	}

	cls := classify.Run(classify.Input{
		ProblemText:      session.StringValue(cs.ProblemDescription),
		EquipmentType:    session.StringValue(cs.EquipmentType),
		EquipmentBrand:   session.StringValue(cs.EquipmentBrand),
		EquipmentAge:     session.StringValue(cs.EquipmentAge),
		TranscriptText:   session.StringValue(cs.Transcript),
		Sentiment:        session.StringValue(cs.UserSentiment),
		DisconnectReason: session.StringValue(cs.DisconnectionReason),
		BookingConfirmed: cs.BookingConfirmed,
		SafetyEmergency:  cs.SafetyEmergency,
		Direction:        cs.Direction,
		Timestamp:        cs.CreatedAt,
	})

	res := w.dash.Send(ctx, cs, cls)
	switch res.Status {
	case dashboard.StatusAccepted:
		if err := w.store.MarkSynced(ctx, callID); err != nil && !errors.Is(err, session.ErrNotFound) {
			return err
		}
		return nil
	case dashboard.StatusSkipped, dashboard.StatusTerminal:
		w.log.SyncFailure(callID, string(res.Status), res.Attempts, res.Err)
		return nil
	default:
		return fmt.Errorf("resync %s: %w", callID, res.Err)
	}
}

// Sweep enqueues nothing; it re-syncs every unsynced session directly.
// Used by the resync binary's one-shot mode to catch calls that failed
// before their task was ever enqueued.
func (w *Worker) Sweep(ctx context.Context, limit int) error {
	ids, err := w.store.ListUnsynced(ctx, limit)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := w.Resync(ctx, id); err != nil {
			w.log.WithCallID(id).Error("sweep resync failed", "error", err)
		}
	}
	return nil
}
