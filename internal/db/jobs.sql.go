package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const createJob = `-- name: CreateJob :execlastid
INSERT INTO jobs (type, payload, status, attempt_count, max_attempts, run_at, created_at, updated_at)
VALUES (?, ?, 'pending', 0, ?, ?, ?, ?)
`

type CreateJobParams struct {
	Type        string
	Payload     json.RawMessage
	MaxAttempts int64
	RunAt       time.Time
}

func (q *Queries) CreateJob(ctx context.Context, arg CreateJobParams) (Job, error) {
	maxAttempts := arg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	now := time.Now().UTC()
	runAt := arg.RunAt.UTC()
	if arg.RunAt.IsZero() {
		runAt = now
	}
	result, err := q.db.ExecContext(ctx, createJob,
		arg.Type,
		[]byte(arg.Payload),
		maxAttempts,
		runAt,
		now,
		now,
	)
	if err != nil {
		return Job{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Job{}, err
	}
	return q.GetJobByID(ctx, id)
}

const getJobByID = `-- name: GetJobByID :one
SELECT id, type, CAST(payload AS BLOB), status, attempt_count, max_attempts, last_error, run_at, created_at, updated_at
FROM jobs WHERE id = ? LIMIT 1
`

func (q *Queries) GetJobByID(ctx context.Context, id int64) (Job, error) {
	row := q.db.QueryRowContext(ctx, getJobByID, id)
	var i Job
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.Payload,
		&i.Status,
		&i.AttemptCount,
		&i.MaxAttempts,
		&i.LastError,
		&i.RunAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const pickNextJob = `-- name: PickNextJob :one
UPDATE jobs
SET status = 'processing', updated_at = ?
WHERE id = (
    SELECT id FROM jobs
    WHERE status = 'pending' AND run_at <= ?
    ORDER BY run_at ASC, id ASC
    LIMIT 1
)
RETURNING id
`

// PickNextJob claims the oldest due pending job in a single statement.
// It returns sql.ErrNoRows when the queue has nothing due.
func (q *Queries) PickNextJob(ctx context.Context, now time.Time) (Job, error) {
	now = now.UTC()
	var id int64
	if err := q.db.QueryRowContext(ctx, pickNextJob, now, now).Scan(&id); err != nil {
		return Job{}, err
	}
	return q.GetJobByID(ctx, id)
}

const completeJob = `-- name: CompleteJob :exec
UPDATE jobs
SET status = 'completed', attempt_count = attempt_count + 1, last_error = NULL, updated_at = ?
WHERE id = ?
`

func (q *Queries) CompleteJob(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, completeJob, time.Now().UTC(), id)
	return err
}

const failJob = `-- name: FailJob :exec
UPDATE jobs
SET attempt_count = attempt_count + 1,
    status = CASE WHEN attempt_count + 1 >= max_attempts THEN 'failed' ELSE 'pending' END,
    last_error = ?,
    run_at = ?,
    updated_at = ?
WHERE id = ?
`

// FailJobParams records a failed attempt. The job goes back to pending with
// RunAt as its next attempt, or to failed once max_attempts is reached.
type FailJobParams struct {
	LastError sql.NullString
	RunAt     time.Time
	ID        int64
}

func (q *Queries) FailJob(ctx context.Context, arg FailJobParams) error {
	_, err := q.db.ExecContext(ctx, failJob,
		arg.LastError,
		arg.RunAt.UTC(),
		time.Now().UTC(),
		arg.ID,
	)
	return err
}

const rescueZombies = `-- name: RescueZombies :execrows
UPDATE jobs SET status = 'pending', updated_at = ? WHERE status = 'processing'
`

func (q *Queries) RescueZombies(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, rescueZombies, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countJobsByStatus = `-- name: CountJobsByStatus :one
SELECT COUNT(*) FROM jobs WHERE status = ?
`

func (q *Queries) CountJobsByStatus(ctx context.Context, status JobStatus) (int64, error) {
	row := q.db.QueryRowContext(ctx, countJobsByStatus, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const discardJob = `-- name: DiscardJob :exec
UPDATE jobs
SET status = 'failed', attempt_count = attempt_count + 1, last_error = ?, updated_at = ?
WHERE id = ?
`

// DiscardJob fails a job without further retries.
func (q *Queries) DiscardJob(ctx context.Context, id int64, lastError string) error {
	_, err := q.db.ExecContext(ctx, discardJob, lastError, time.Now().UTC(), id)
	return err
}
