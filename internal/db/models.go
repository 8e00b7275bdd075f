package db

import (
	"database/sql"
	"encoding/json"
	"time"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is one of the two accepted visibilities.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type Post struct {
	ID             string
	AuthorID       int64
	AuthorUsername string
	Title          string
	Content        string
	ImageUrl       sql.NullString
	Visibility     Visibility
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

type Job struct {
	ID           int64
	Type         string
	Payload      json.RawMessage
	Status       JobStatus
	AttemptCount int64
	MaxAttempts  int64
	LastError    sql.NullString
	RunAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
