package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Store routes reads to the read pool and writes to the single writer
// connection. Read-after-write lookups done inside a write query stay on the
// writer.
type Store struct {
	pool *DualPool
}

func NewStore(pool *DualPool) *Store {
	return &Store{pool: pool}
}

func (s *Store) read() *Queries  { return s.pool.Queries() }
func (s *Store) write() *Queries { return s.pool.QueriesWrite() }

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Read.PingContext(ctx)
}

func (s *Store) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return s.write().CreateUser(ctx, arg)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.read().GetUserByEmail(ctx, email)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (User, error) {
	return s.read().GetUserByID(ctx, id)
}

func (s *Store) UserExists(ctx context.Context, arg UserExistsParams) (bool, error) {
	return s.read().UserExists(ctx, arg)
}

func (s *Store) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	return s.write().CreatePost(ctx, arg)
}

func (s *Store) GetPostByID(ctx context.Context, id string) (Post, error) {
	return s.read().GetPostByID(ctx, id)
}

// UpdatePost applies arg and enqueues jobs in the same transaction.
func (s *Store) UpdatePost(ctx context.Context, arg UpdatePostParams, jobs ...CreateJobParams) (Post, error) {
	if len(jobs) == 0 {
		return s.write().UpdatePost(ctx, arg)
	}
	var post Post
	err := s.InTx(ctx, func(q *Queries) error {
		var err error
		if post, err = q.UpdatePost(ctx, arg); err != nil {
			return err
		}
		return enqueue(ctx, q, jobs)
	})
	return post, err
}

// DeletePost removes the post and enqueues jobs in the same transaction.
func (s *Store) DeletePost(ctx context.Context, id string, jobs ...CreateJobParams) error {
	if len(jobs) == 0 {
		return s.write().DeletePost(ctx, id)
	}
	return s.InTx(ctx, func(q *Queries) error {
		if err := q.DeletePost(ctx, id); err != nil {
			return err
		}
		return enqueue(ctx, q, jobs)
	})
}

func enqueue(ctx context.Context, q *Queries, jobs []CreateJobParams) error {
	for _, job := range jobs {
		if _, err := q.CreateJob(ctx, job); err != nil {
			return fmt.Errorf("enqueue %s: %w", job.Type, err)
		}
	}
	return nil
}

func (s *Store) ListPublicPosts(ctx context.Context, arg ListPublicPostsParams) ([]Post, error) {
	return s.read().ListPublicPosts(ctx, arg)
}

func (s *Store) CountPublicPosts(ctx context.Context) (int64, error) {
	return s.read().CountPublicPosts(ctx)
}

func (s *Store) ListPostsByAuthor(ctx context.Context, arg ListPostsByAuthorParams) ([]Post, error) {
	return s.read().ListPostsByAuthor(ctx, arg)
}

func (s *Store) CountPostsByAuthor(ctx context.Context, authorID int64) (int64, error) {
	return s.read().CountPostsByAuthor(ctx, authorID)
}

func (s *Store) CountPostsByImage(ctx context.Context, imageUrl string) (int64, error) {
	return s.read().CountPostsByImage(ctx, imageUrl)
}

func (s *Store) CreateJob(ctx context.Context, arg CreateJobParams) (Job, error) {
	return s.write().CreateJob(ctx, arg)
}

func (s *Store) CountJobsByStatus(ctx context.Context, status JobStatus) (int64, error) {
	return s.read().CountJobsByStatus(ctx, status)
}

// InTx runs fn against the writer inside a transaction.
func (s *Store) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.pool.Write.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(s.write().WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
