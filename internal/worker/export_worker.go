package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rentloop/internal/export"
	"rentloop/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	exportQueueKey      = "exports:queue"
	exportDeadLetterKey = "exports:deadletter"
)

// ExportWorker consumes export tasks and writes XLSX booking reports.
// Tasks go through a Redis list when a client is configured, otherwise
// through an in-memory channel; failures retry with backoff and land
// in a dead-letter list when exhausted.
type ExportWorker struct {
	exporter     *export.Exporter
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan models.ExportTask
	pollInterval time.Duration
	logger       *zerolog.Logger
}

// NewExportWorker builds a worker with sane defaults.
func NewExportWorker(exporter *export.Exporter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *ExportWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &ExportWorker{
		exporter:     exporter,
		redis:        redisClient,
		retryPolicy:  retry,
		queue:        make(chan models.ExportTask, 128),
		pollInterval: 2 * time.Second,
		logger:       logger,
	}
}

// EnqueueExport schedules a task via Redis or the in-memory queue.
func (w *ExportWorker) EnqueueExport(ctx context.Context, task models.ExportTask) error {
	if w.redis != nil {
		raw, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("failed to marshal export task: %w", err)
		}
		if err := w.redis.RPush(ctx, exportQueueKey, raw).Err(); err != nil {
			return fmt.Errorf("failed to enqueue export task: %w", err)
		}
		return nil
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return fmt.Errorf("export queue is full")
	}
}

// Run processes tasks until the context is canceled.
func (w *ExportWorker) Run(ctx context.Context) {
	w.logger.Info().Msg("export worker started")
	for {
		task, ok := w.nextTask(ctx)
		if !ok {
			w.logger.Info().Msg("export worker stopped")
			return
		}
		w.process(ctx, task)
	}
}

func (w *ExportWorker) nextTask(ctx context.Context) (models.ExportTask, bool) {
	if w.redis == nil {
		select {
		case <-ctx.Done():
			return models.ExportTask{}, false
		case task := <-w.queue:
			return task, true
		}
	}

	for {
		if ctx.Err() != nil {
			return models.ExportTask{}, false
		}

		res, err := w.redis.BLPop(ctx, w.pollInterval, exportQueueKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return models.ExportTask{}, false
			}
			w.logger.Error().Err(err).Msg("failed to pop export task")
			time.Sleep(w.pollInterval)
			continue
		}

		var task models.ExportTask
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			w.logger.Error().Err(err).Msg("failed to unmarshal export task")
			continue
		}
		return task, true
	}
}

func (w *ExportWorker) process(ctx context.Context, task models.ExportTask) {
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		path, err := w.exporter.OwnerReport(ctx, task.OwnerID)
		if err == nil {
			w.logger.Info().
				Str("task_id", task.ID).
				Int64("owner_id", task.OwnerID).
				Str("path", path).
				Msg("export completed")
			return
		}

		w.logger.Warn().
			Err(err).
			Str("task_id", task.ID).
			Int("attempt", attempt).
			Msg("export attempt failed")

		if attempt < w.retryPolicy.MaxRetries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.retryPolicy.NextDelay(attempt)):
			}
		}
	}

	w.deadLetter(ctx, task)
}

func (w *ExportWorker) deadLetter(ctx context.Context, task models.ExportTask) {
	w.logger.Error().Str("task_id", task.ID).Int64("owner_id", task.OwnerID).Msg("export task exhausted retries")
	if w.redis == nil {
		return
	}

	raw, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := w.redis.RPush(ctx, exportDeadLetterKey, raw).Err(); err != nil {
		w.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to push dead letter")
	}
}
