package db

import (
	"context"
	"database/sql"
	"time"
)

const createPost = `-- name: CreatePost :exec
INSERT INTO posts (id, author_id, title, content, image_url, visibility, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreatePostParams struct {
	ID         string
	AuthorID   int64
	Title      string
	Content    string
	ImageUrl   sql.NullString
	Visibility Visibility
	CreatedAt  time.Time
}

// CreatePost inserts the post and reads it back joined with its author.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	createdAt := arg.CreatedAt.UTC()
	if _, err := q.db.ExecContext(ctx, createPost,
		arg.ID,
		arg.AuthorID,
		arg.Title,
		arg.Content,
		arg.ImageUrl,
		arg.Visibility,
		createdAt,
		createdAt,
	); err != nil {
		return Post{}, err
	}
	return q.GetPostByID(ctx, arg.ID)
}

const getPostByID = `-- name: GetPostByID :one
SELECT p.id, p.author_id, u.username, p.title, p.content, p.image_url, p.visibility, p.created_at, p.updated_at
FROM posts p
JOIN users u ON u.id = p.author_id
WHERE p.id = ? LIMIT 1
`

func (q *Queries) GetPostByID(ctx context.Context, id string) (Post, error) {
	row := q.db.QueryRowContext(ctx, getPostByID, id)
	return scanPost(row)
}

const updatePost = `-- name: UpdatePost :execrows
UPDATE posts SET
    title      = COALESCE(?, title),
    content    = COALESCE(?, content),
    visibility = COALESCE(?, visibility),
    image_url  = CASE WHEN ? THEN NULLIF(?, '') ELSE image_url END,
    updated_at = ?
WHERE id = ?
`

// UpdatePostParams carries a partial update. Null fields keep the stored
// value; SetImageUrl with an empty ImageUrl clears the image.
type UpdatePostParams struct {
	ID          string
	Title       sql.NullString
	Content     sql.NullString
	Visibility  sql.NullString
	SetImageUrl bool
	ImageUrl    string
	UpdatedAt   time.Time
}

// UpdatePost returns sql.ErrNoRows when the post no longer exists.
func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) (Post, error) {
	result, err := q.db.ExecContext(ctx, updatePost,
		arg.Title,
		arg.Content,
		arg.Visibility,
		arg.SetImageUrl,
		arg.ImageUrl,
		arg.UpdatedAt.UTC(),
		arg.ID,
	)
	if err != nil {
		return Post{}, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return Post{}, err
	}
	if n == 0 {
		return Post{}, sql.ErrNoRows
	}
	return q.GetPostByID(ctx, arg.ID)
}

const deletePost = `-- name: DeletePost :execrows
DELETE FROM posts WHERE id = ?
`

// DeletePost returns sql.ErrNoRows when nothing was deleted.
func (q *Queries) DeletePost(ctx context.Context, id string) error {
	result, err := q.db.ExecContext(ctx, deletePost, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const listPublicPosts = `-- name: ListPublicPosts :many
SELECT p.id, p.author_id, u.username, p.title, p.content, p.image_url, p.visibility, p.created_at, p.updated_at
FROM posts p
JOIN users u ON u.id = p.author_id
WHERE p.visibility = 'public'
ORDER BY p.created_at DESC, p.rowid DESC
LIMIT ? OFFSET ?
`

type ListPublicPostsParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) ListPublicPosts(ctx context.Context, arg ListPublicPostsParams) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, listPublicPosts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

const countPublicPosts = `-- name: CountPublicPosts :one
SELECT COUNT(*) FROM posts WHERE visibility = 'public'
`

func (q *Queries) CountPublicPosts(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPublicPosts)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listPostsByAuthor = `-- name: ListPostsByAuthor :many
SELECT p.id, p.author_id, u.username, p.title, p.content, p.image_url, p.visibility, p.created_at, p.updated_at
FROM posts p
JOIN users u ON u.id = p.author_id
WHERE p.author_id = ?
ORDER BY p.created_at DESC, p.rowid DESC
LIMIT ? OFFSET ?
`

type ListPostsByAuthorParams struct {
	AuthorID int64
	Limit    int64
	Offset   int64
}

func (q *Queries) ListPostsByAuthor(ctx context.Context, arg ListPostsByAuthorParams) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, listPostsByAuthor, arg.AuthorID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

const countPostsByAuthor = `-- name: CountPostsByAuthor :one
SELECT COUNT(*) FROM posts WHERE author_id = ?
`

func (q *Queries) CountPostsByAuthor(ctx context.Context, authorID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPostsByAuthor, authorID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countPostsByImage = `-- name: CountPostsByImage :one
SELECT COUNT(*) FROM posts WHERE image_url = ?
`

func (q *Queries) CountPostsByImage(ctx context.Context, imageUrl string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPostsByImage, imageUrl)
	var count int64
	err := row.Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var i Post
	err := row.Scan(
		&i.ID,
		&i.AuthorID,
		&i.AuthorUsername,
		&i.Title,
		&i.Content,
		&i.ImageUrl,
		&i.Visibility,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	defer rows.Close()
	items := []Post{}
	for rows.Next() {
		i, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
