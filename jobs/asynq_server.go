package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Worker wraps the Asynq server processing background tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Mailer    *Mailer
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) *Worker {
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeWelcomeEmail, welcomeEmailHandler(cfg.Logger, cfg.Mailer))
	return &Worker{server: srv, mux: mux, logger: cfg.Logger}
}

// Run starts processing tasks and blocks until Shutdown.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown stops the server gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func welcomeEmailHandler(logger *slog.Logger, mailer *Mailer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload WelcomeEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			// A malformed payload will never become valid; do not retry.
			return asynq.SkipRetry
		}
		if err := mailer.SendWelcome(payload.Email, payload.Name); err != nil {
			if logger != nil {
				logger.Warn("send welcome email", slog.String("to", payload.Email), slog.Any("error", err))
			}
			return err
		}
		if logger != nil {
			logger.Info("welcome email sent", slog.String("to", payload.Email))
		}
		return nil
	}
}
