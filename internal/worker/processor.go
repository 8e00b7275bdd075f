package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/logging"
	"github.com/PauloHFS/goth-blog/internal/metrics"
	"github.com/PauloHFS/goth-blog/internal/upload"
)

// errPermanent marks failures that retrying cannot fix.
var errPermanent = errors.New("permanent job failure")

type Processor struct {
	queries   *db.Queries
	logger    *slog.Logger
	uploadDir string
	backoff   BackoffConfig
	interval  time.Duration
	now       func() time.Time
	wg        sync.WaitGroup
}

// New builds a processor. queries must point at the writer pool.
func New(queries *db.Queries, uploadDir string, l *slog.Logger) *Processor {
	return &Processor{
		queries:   queries,
		logger:    l,
		uploadDir: uploadDir,
		backoff:   DefaultBackoffConfig,
		interval:  time.Second,
		now:       time.Now,
	}
}

func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("worker started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker signal received: waiting for active jobs to finish")
			return
		case <-ticker.C:
			for p.ProcessNext(ctx) {
				if ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// Wait blocks until all active jobs are finished
func (p *Processor) Wait() {
	p.wg.Wait()
}

// ProcessNext runs the next due job. It reports whether a job was picked.
func (p *Processor) ProcessNext(ctx context.Context) bool {
	p.wg.Add(1)
	defer p.wg.Done()

	start := time.Now()
	job, err := p.queries.PickNextJob(ctx, p.now())
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) && ctx.Err() == nil {
			p.logger.ErrorContext(ctx, "failed to pick job", slog.String("error", err.Error()))
		}
		return false
	}

	ctx, event := logging.NewEventContext(ctx)
	event.Add(
		slog.Int64("job_id", job.ID),
		slog.String("job_type", job.Type),
		slog.Int64("attempt", job.AttemptCount+1),
	)

	var errProcessing error
	switch job.Type {
	case TypeRemoveImage:
		errProcessing = p.handleRemoveImage(ctx, job.Payload)
	default:
		errProcessing = fmt.Errorf("%w: unknown job type %q", errPermanent, job.Type)
	}

	if errProcessing != nil {
		p.recordFailure(ctx, job, errProcessing)
		metrics.JobDuration.WithLabelValues(job.Type, "failed").Observe(time.Since(start).Seconds())
		p.logger.ErrorContext(ctx, "job processing failed",
			append(event.Attrs(), slog.String("error", errProcessing.Error()))...)
		return true
	}

	if err := p.queries.CompleteJob(ctx, job.ID); err != nil {
		p.logger.ErrorContext(ctx, "failed to complete job", "error", err)
		return true
	}

	duration := time.Since(start)
	metrics.JobDuration.WithLabelValues(job.Type, "success").Observe(duration.Seconds())
	metrics.JobsProcessed.WithLabelValues(job.Type, "success").Inc()
	event.Add(slog.Float64("duration_ms", float64(duration.Nanoseconds())/1e6))

	p.logger.InfoContext(ctx, "job completed", event.Attrs()...)
	return true
}

func (p *Processor) recordFailure(ctx context.Context, job db.Job, cause error) {
	attempts := job.AttemptCount + 1
	if errors.Is(cause, errPermanent) || attempts >= job.MaxAttempts {
		if err := p.queries.DiscardJob(ctx, job.ID, cause.Error()); err != nil {
			p.logger.ErrorContext(ctx, "failed to record job failure in db", "error", err)
		}
		metrics.JobsProcessed.WithLabelValues(job.Type, "failed").Inc()
		metrics.JobsFailed.WithLabelValues(job.Type).Inc()
		return
	}

	if err := p.queries.FailJob(ctx, db.FailJobParams{
		LastError: sql.NullString{String: cause.Error(), Valid: true},
		RunAt:     p.now().Add(FullJitter(int(attempts), p.backoff)),
		ID:        job.ID,
	}); err != nil {
		p.logger.ErrorContext(ctx, "failed to record job failure in db", "error", err)
	}
	metrics.JobRetries.WithLabelValues(job.Type).Inc()
}

// handleRemoveImage deletes an uploaded image once no post references it.
func (p *Processor) handleRemoveImage(ctx context.Context, payload json.RawMessage) error {
	var data RemoveImagePayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}

	logging.AddToEvent(ctx, slog.String("image_url", data.URL))

	refs, err := p.queries.CountPostsByImage(ctx, data.URL)
	if err != nil {
		return fmt.Errorf("count image references: %w", err)
	}
	if refs > 0 {
		logging.AddToEvent(ctx, slog.Int64("image_refs", refs))
		return nil
	}

	path, ok := upload.ResolvePath(p.uploadDir, data.URL)
	if !ok {
		return fmt.Errorf("%w: %q is not an uploaded file", errPermanent, data.URL)
	}
	if err := upload.DeleteFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	logging.AddToEvent(ctx, slog.Bool("removed", true))
	return nil
}
