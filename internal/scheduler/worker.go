package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"fieldops_backend/internal/dashboard/aggregation"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"
)

// Worker consumes background tasks and drives the periodic refresh schedule.
type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	periodic    *asynq.Scheduler
	aggregation *aggregation.Service
	log         *logger.Logger
}

// NewWorker creates the background worker. The analytics refresh task is
// both handled here and registered on a periodic schedule derived from the
// configured refresh interval.
func NewWorker(cfg config.SchedulerConfig, aggregationSvc *aggregation.Service, log *logger.Logger) (*Worker, error) {
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
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	interval := cfg.GetAnalyticsRefreshInterval()
	if interval < time.Minute {
		interval = time.Minute
	}

	periodic := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:      server,
		mux:         mux,
		periodic:    periodic,
		aggregation: aggregationSvc,
		log:         log,
	}

	mux.HandleFunc(TaskAnalyticsRefresh, w.handleAnalyticsRefresh)

	task, err := NewAnalyticsRefreshTask()
	if err != nil {
		return nil, err
	}
	if _, err := periodic.Register(fmt.Sprintf("@every %s", interval), task, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register periodic refresh: %w", err)
	}

	return w, nil
}

func (w *Worker) handleAnalyticsRefresh(ctx context.Context, _ *asynq.Task) error {
	return w.aggregation.Refresh(ctx)
}

// Run starts the task server and the periodic schedule, blocking until the
// context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.periodic.Shutdown()
		w.server.Shutdown()
	}()

	go func() {
		if err := w.periodic.Run(); err != nil {
			w.log.Error("periodic scheduler stopped", "error", err)
		}
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
