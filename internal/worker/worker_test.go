package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/upload"
	_ "github.com/mattn/go-sqlite3"
)

func setupProcessor(t *testing.T) (*Processor, *db.Queries, string) {
	t.Helper()
	dir := t.TempDir()
	dbConn, err := sql.Open("sqlite3", filepath.Join(dir, "worker.db")+"?_foreign_keys=on")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { dbConn.Close() })
	if err := db.RunMigrations(context.Background(), dbConn); err != nil {
		t.Fatal(err)
	}

	uploadDir := filepath.Join(dir, "uploads")
	if err := os.MkdirAll(filepath.Join(uploadDir, "images"), 0755); err != nil {
		t.Fatal(err)
	}

	q := db.New(dbConn)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return New(q, uploadDir, logger), q, uploadDir
}

func writeImage(t *testing.T, uploadDir string, owner int64, name string) string {
	t.Helper()
	dir := filepath.Join(uploadDir, "images", strconv.FormatInt(owner, 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("img"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func enqueue(t *testing.T, q *db.Queries, job db.CreateJobParams) db.Job {
	t.Helper()
	created, err := q.CreateJob(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	return created
}

func removeJob(t *testing.T, url string, owner int64) db.CreateJobParams {
	t.Helper()
	job, ok := RemoveImageJob(url, owner)
	if !ok {
		t.Fatalf("expected job for %s", url)
	}
	return job
}

func TestProcessor_New(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	t.Run("ProcessorInitialization", func(t *testing.T) {
		p := New(nil, "/tmp/uploads", logger)
		if p == nil {
			t.Fatal("expected processor, got nil")
		}
		if p.logger != logger {
			t.Error("logger not correctly assigned")
		}
	})
}

func TestRemoveImageJob(t *testing.T) {
	job, ok := RemoveImageJob("/uploads/images/3/a.png", 3)
	if !ok || job.Type != TypeRemoveImage {
		t.Fatalf("expected remove_image job, got %+v", job)
	}
	var payload RemoveImagePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil || payload.URL != "/uploads/images/3/a.png" {
		t.Errorf("unexpected payload %s", job.Payload)
	}

	if _, ok := RemoveImageJob("https://cdn.example.com/a.png", 3); ok {
		t.Error("external images must not be scheduled for removal")
	}
	if _, ok := RemoveImageJob("/uploads/images/4/a.png", 3); ok {
		t.Error("another user's upload must not be scheduled for removal")
	}
}

func TestProcessor_RemoveImage(t *testing.T) {
	p, q, uploadDir := setupProcessor(t)
	ctx := context.Background()

	user, err := q.CreateUser(ctx, db.CreateUserParams{Username: "alice", Email: "a@example.com", PasswordHash: "h", CreatedAt: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	keptURL := fmt.Sprintf("/uploads/images/%d/kept.png", user.ID)
	orphanURL := fmt.Sprintf("/uploads/images/%d/orphan.png", user.ID)
	keptPath := writeImage(t, uploadDir, user.ID, "kept.png")
	orphanPath := writeImage(t, uploadDir, user.ID, "orphan.png")
	if _, err := q.CreatePost(ctx, db.CreatePostParams{
		ID: "p1", AuthorID: user.ID, Title: "t", Content: "c",
		ImageUrl:   sql.NullString{String: keptURL, Valid: true},
		Visibility: db.VisibilityPublic, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	kept := enqueue(t, q, removeJob(t, keptURL, user.ID))
	orphan := enqueue(t, q, removeJob(t, orphanURL, user.ID))
	missing := enqueue(t, q, removeJob(t, fmt.Sprintf("/uploads/images/%d/already-gone.png", user.ID), user.ID))

	for range 3 {
		if !p.ProcessNext(ctx) {
			t.Fatal("expected a job to be processed")
		}
	}
	if p.ProcessNext(ctx) {
		t.Error("expected empty queue")
	}

	if !upload.FileExists(keptPath) {
		t.Error("referenced image must be kept")
	}
	if upload.FileExists(orphanPath) {
		t.Error("orphan image should be removed")
	}
	for _, id := range []int64{kept.ID, orphan.ID, missing.ID} {
		j, _ := q.GetJobByID(ctx, id)
		if j.Status != db.JobStatusCompleted {
			t.Errorf("job %d: expected completed, got %s (%s)", id, j.Status, j.LastError.String)
		}
	}
}

func TestProcessor_Failures(t *testing.T) {
	p, q, uploadDir := setupProcessor(t)
	ctx := context.Background()

	t.Run("UnknownTypeFailsImmediately", func(t *testing.T) {
		job := enqueue(t, q, db.CreateJobParams{Type: "send_fax", Payload: json.RawMessage(`{}`)})
		p.ProcessNext(ctx)
		j, _ := q.GetJobByID(ctx, job.ID)
		if j.Status != db.JobStatusFailed || j.AttemptCount != 1 {
			t.Errorf("expected failed after 1 attempt, got %s/%d", j.Status, j.AttemptCount)
		}
	})

	t.Run("BadPayloadFailsImmediately", func(t *testing.T) {
		job := enqueue(t, q, db.CreateJobParams{Type: TypeRemoveImage, Payload: json.RawMessage(`"nope"`)})
		p.ProcessNext(ctx)
		j, _ := q.GetJobByID(ctx, job.ID)
		if j.Status != db.JobStatusFailed {
			t.Errorf("expected failed, got %s", j.Status)
		}
	})

	t.Run("TransientErrorIsRetried", func(t *testing.T) {
		// a non-empty directory cannot be removed with os.Remove
		blocked := filepath.Join(uploadDir, "images", "blocked.png")
		if err := os.MkdirAll(filepath.Join(blocked, "inner"), 0755); err != nil {
			t.Fatal(err)
		}

		job := enqueue(t, q, db.CreateJobParams{
			Type:        TypeRemoveImage,
			Payload:     json.RawMessage(`{"url":"/uploads/images/blocked.png"}`),
			MaxAttempts: 2,
		})

		now := time.Now()
		p.now = func() time.Time { return now }
		p.ProcessNext(ctx)

		j, _ := q.GetJobByID(ctx, job.ID)
		if j.Status != db.JobStatusPending || j.AttemptCount != 1 || !j.LastError.Valid {
			t.Fatalf("expected pending retry, got %+v", j)
		}
		if !j.RunAt.After(now) {
			t.Errorf("expected retry scheduled in the future, got %s", j.RunAt)
		}

		if p.ProcessNext(ctx) {
			t.Error("retry must wait for its backoff")
		}

		p.now = func() time.Time { return now.Add(time.Hour) }
		p.ProcessNext(ctx)
		j, _ = q.GetJobByID(ctx, job.ID)
		if j.Status != db.JobStatusFailed || j.AttemptCount != 2 {
			t.Errorf("expected failed after max attempts, got %s/%d", j.Status, j.AttemptCount)
		}
	})
}

func TestProcessor_RescueZombies(t *testing.T) {
	p, q, _ := setupProcessor(t)
	ctx := context.Background()

	job := enqueue(t, q, removeJob(t, "/uploads/images/1/x.png", 1))
	if _, err := q.PickNextJob(ctx, time.Now()); err != nil {
		t.Fatal(err)
	}

	if err := p.RescueZombies(ctx); err != nil {
		t.Fatal(err)
	}
	j, _ := q.GetJobByID(ctx, job.ID)
	if j.Status != db.JobStatusPending {
		t.Errorf("expected pending, got %s", j.Status)
	}
}

func TestProcessor_StartStops(t *testing.T) {
	p, _, _ := setupProcessor(t)
	p.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	p.Wait()
}

func TestFullJitter(t *testing.T) {
	cfg := BackoffConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	if got := FullJitter(0, cfg); got != cfg.BaseDelay {
		t.Errorf("expected base delay for attempt 0, got %s", got)
	}
	for attempt := 1; attempt <= 40; attempt++ {
		exp := min(cfg.BaseDelay*time.Duration(1<<min(attempt, 30)), cfg.MaxDelay)
		got := FullJitter(attempt, cfg)
		if got < exp/2 || got >= exp/2+exp {
			t.Errorf("attempt %d: %s outside [%s, %s)", attempt, got, exp/2, exp/2+exp)
		}
	}
	if got := FullJitter(3, BackoffConfig{}); got != 0 {
		t.Errorf("expected 0 for empty config, got %s", got)
	}
}
