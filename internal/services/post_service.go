package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/logging"
	"github.com/PauloHFS/goth-blog/internal/policies"
	"github.com/PauloHFS/goth-blog/internal/upload"
	"github.com/PauloHFS/goth-blog/internal/validator"
	"github.com/PauloHFS/goth-blog/internal/worker"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/PauloHFS/goth-blog/internal/services")

// PostStore is the persistence gateway the post service depends on.
// db.Store satisfies it.
type PostStore interface {
	GetUserByID(ctx context.Context, id int64) (db.User, error)
	CreatePost(ctx context.Context, arg db.CreatePostParams) (db.Post, error)
	GetPostByID(ctx context.Context, id string) (db.Post, error)
	UpdatePost(ctx context.Context, arg db.UpdatePostParams, jobs ...db.CreateJobParams) (db.Post, error)
	DeletePost(ctx context.Context, id string, jobs ...db.CreateJobParams) error
	ListPublicPosts(ctx context.Context, arg db.ListPublicPostsParams) ([]db.Post, error)
	CountPublicPosts(ctx context.Context) (int64, error)
	ListPostsByAuthor(ctx context.Context, arg db.ListPostsByAuthorParams) ([]db.Post, error)
	CountPostsByAuthor(ctx context.Context, authorID int64) (int64, error)
}

type PostService struct {
	store   PostStore
	policy  *policies.PostPolicy
	title   *bluemonday.Policy
	content *bluemonday.Policy
	now     func() time.Time
}

func NewPostService(store PostStore, policy *policies.PostPolicy) *PostService {
	return &PostService{
		store:   store,
		policy:  policy,
		title:   bluemonday.StrictPolicy(),
		content: bluemonday.UGCPolicy(),
		now:     time.Now,
	}
}

type CreatePostInput struct {
	Title      string `json:"title" validate:"required,max=200"`
	Content    string `json:"content" validate:"required,max=20000"`
	ImageUrl   string `json:"imageUrl" validate:"omitempty,max=2048"`
	Visibility string `json:"visibility" validate:"omitempty,oneof=public private"`
}

// UpdatePostInput is a partial update: nil fields keep their stored value.
// An empty ImageUrl removes the image.
type UpdatePostInput struct {
	Title      *string `json:"title" validate:"omitnil,max=200"`
	Content    *string `json:"content" validate:"omitnil,max=20000"`
	ImageUrl   *string `json:"imageUrl" validate:"omitnil,max=2048"`
	Visibility *string `json:"visibility" validate:"omitnil,oneof=public private"`
}

func (in UpdatePostInput) empty() bool {
	return in.Title == nil && in.Content == nil && in.ImageUrl == nil && in.Visibility == nil
}

func (s *PostService) Create(ctx context.Context, requester policies.Requester, in CreatePostInput) (db.Post, error) {
	ctx, span := s.start(ctx, "PostService.Create", requester)
	defer span.End()

	if d := s.policy.Authorize(policies.ActionCreate, requester, nil); !d.Allowed {
		return db.Post{}, fail(span, denial(d))
	}

	if _, err := s.store.GetUserByID(ctx, requester.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.Post{}, fail(span, newError(ErrUnauthenticated, "user no longer exists"))
		}
		return db.Post{}, fail(span, fmt.Errorf("load author: %w", err))
	}

	if err := validate(in); err != nil {
		return db.Post{}, fail(span, err)
	}
	title, content, err := s.clean(in.Title, in.Content)
	if err != nil {
		return db.Post{}, fail(span, err)
	}

	visibility := db.Visibility(in.Visibility)
	if visibility == "" {
		visibility = db.VisibilityPublic
	}

	imageURL := strings.TrimSpace(in.ImageUrl)
	if err := checkImageURL(imageURL, requester.UserID); err != nil {
		return db.Post{}, fail(span, err)
	}
	post, err := s.store.CreatePost(ctx, db.CreatePostParams{
		ID:         uuid.NewString(),
		AuthorID:   requester.UserID,
		Title:      title,
		Content:    content,
		ImageUrl:   sql.NullString{String: imageURL, Valid: imageURL != ""},
		Visibility: visibility,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return db.Post{}, fail(span, fmt.Errorf("create post: %w", err))
	}

	span.SetAttributes(attribute.String("post.id", post.ID))
	logging.AddToEvent(ctx, slog.String("post_id", post.ID))
	return post, nil
}

func (s *PostService) Get(ctx context.Context, requester policies.Requester, id string) (db.Post, error) {
	ctx, span := s.start(ctx, "PostService.Get", requester, attribute.String("post.id", id))
	defer span.End()
	logging.AddToEvent(ctx, slog.String("post_id", id))

	post, err := s.load(ctx, id)
	if err != nil {
		return db.Post{}, fail(span, err)
	}
	if d := s.policy.Authorize(policies.ActionRead, requester, &post); !d.Allowed {
		return db.Post{}, fail(span, denial(d))
	}
	return post, nil
}

func (s *PostService) Update(ctx context.Context, requester policies.Requester, id string, in UpdatePostInput) (db.Post, error) {
	ctx, span := s.start(ctx, "PostService.Update", requester, attribute.String("post.id", id))
	defer span.End()
	logging.AddToEvent(ctx, slog.String("post_id", id))

	if !requester.Present {
		return db.Post{}, fail(span, newError(ErrUnauthenticated, "authentication required"))
	}
	if in.empty() {
		return db.Post{}, fail(span, newError(ErrValidation, "no fields to update"))
	}
	if err := validate(in); err != nil {
		return db.Post{}, fail(span, err)
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return db.Post{}, fail(span, err)
	}
	if d := s.policy.Authorize(policies.ActionUpdate, requester, &current); !d.Allowed {
		return db.Post{}, fail(span, denial(d))
	}

	params := db.UpdatePostParams{ID: id, UpdatedAt: s.now()}
	if in.Title != nil {
		title, err := s.cleanTitle(*in.Title)
		if err != nil {
			return db.Post{}, fail(span, err)
		}
		params.Title = sql.NullString{String: title, Valid: true}
	}
	if in.Content != nil {
		content, err := s.cleanContent(*in.Content)
		if err != nil {
			return db.Post{}, fail(span, err)
		}
		params.Content = sql.NullString{String: content, Valid: true}
	}
	if in.Visibility != nil {
		params.Visibility = sql.NullString{String: *in.Visibility, Valid: true}
	}

	var jobs []db.CreateJobParams
	if in.ImageUrl != nil {
		params.SetImageUrl = true
		params.ImageUrl = strings.TrimSpace(*in.ImageUrl)
		if err := checkImageURL(params.ImageUrl, current.AuthorID); err != nil {
			return db.Post{}, fail(span, err)
		}
		if current.ImageUrl.Valid && current.ImageUrl.String != params.ImageUrl {
			if job, ok := worker.RemoveImageJob(current.ImageUrl.String, current.AuthorID); ok {
				jobs = append(jobs, job)
			}
		}
	}

	post, err := s.store.UpdatePost(ctx, params, jobs...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.Post{}, fail(span, newError(ErrNotFound, "post not found"))
		}
		return db.Post{}, fail(span, fmt.Errorf("update post: %w", err))
	}
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, requester policies.Requester, id string) error {
	ctx, span := s.start(ctx, "PostService.Delete", requester, attribute.String("post.id", id))
	defer span.End()
	logging.AddToEvent(ctx, slog.String("post_id", id))

	if !requester.Present {
		return fail(span, newError(ErrUnauthenticated, "authentication required"))
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return fail(span, err)
	}
	if d := s.policy.Authorize(policies.ActionDelete, requester, &current); !d.Allowed {
		return fail(span, denial(d))
	}

	var jobs []db.CreateJobParams
	if current.ImageUrl.Valid {
		if job, ok := worker.RemoveImageJob(current.ImageUrl.String, current.AuthorID); ok {
			jobs = append(jobs, job)
		}
	}

	if err := s.store.DeletePost(ctx, id, jobs...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(span, newError(ErrNotFound, "post not found"))
		}
		return fail(span, fmt.Errorf("delete post: %w", err))
	}
	return nil
}

// ListPublic returns public posts, newest first.
func (s *PostService) ListPublic(ctx context.Context, paging db.PagingParams) (db.PagedResult[db.Post], error) {
	ctx, span := tracer.Start(ctx, "PostService.ListPublic")
	defer span.End()

	posts, err := s.store.ListPublicPosts(ctx, db.ListPublicPostsParams{
		Limit:  int64(paging.Limit()),
		Offset: int64(paging.Offset()),
	})
	if err != nil {
		return db.PagedResult[db.Post]{}, fail(span, fmt.Errorf("list public posts: %w", err))
	}
	total, err := s.store.CountPublicPosts(ctx)
	if err != nil {
		return db.PagedResult[db.Post]{}, fail(span, fmt.Errorf("count public posts: %w", err))
	}
	return paged(posts, total, paging), nil
}

// ListByAuthor returns every post of the requester, both visibilities.
func (s *PostService) ListByAuthor(ctx context.Context, requester policies.Requester, paging db.PagingParams) (db.PagedResult[db.Post], error) {
	ctx, span := s.start(ctx, "PostService.ListByAuthor", requester)
	defer span.End()

	if !requester.Present {
		return db.PagedResult[db.Post]{}, fail(span, newError(ErrUnauthenticated, "authentication required"))
	}

	posts, err := s.store.ListPostsByAuthor(ctx, db.ListPostsByAuthorParams{
		AuthorID: requester.UserID,
		Limit:    int64(paging.Limit()),
		Offset:   int64(paging.Offset()),
	})
	if err != nil {
		return db.PagedResult[db.Post]{}, fail(span, fmt.Errorf("list posts by author: %w", err))
	}
	total, err := s.store.CountPostsByAuthor(ctx, requester.UserID)
	if err != nil {
		return db.PagedResult[db.Post]{}, fail(span, fmt.Errorf("count posts by author: %w", err))
	}
	return paged(posts, total, paging), nil
}

// CanEdit reports whether requester may update post.
func (s *PostService) CanEdit(requester policies.Requester, post db.Post) bool {
	return requester.Present && s.policy.CanEditPost(requester.UserID, post)
}

func (s *PostService) load(ctx context.Context, id string) (db.Post, error) {
	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.Post{}, newError(ErrNotFound, "post not found")
		}
		return db.Post{}, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

func (s *PostService) clean(title, content string) (string, string, error) {
	t, err := s.cleanTitle(title)
	if err != nil {
		return "", "", err
	}
	c, err := s.cleanContent(content)
	if err != nil {
		return "", "", err
	}
	return t, c, nil
}

// cleanTitle strips all markup; titles are plain text.
func (s *PostService) cleanTitle(title string) (string, error) {
	t := strings.TrimSpace(html.UnescapeString(s.title.Sanitize(title)))
	if t == "" {
		return "", newError(ErrValidation, "title is required")
	}
	return t, nil
}

func (s *PostService) cleanContent(content string) (string, error) {
	c := strings.TrimSpace(s.content.Sanitize(content))
	if c == "" {
		return "", newError(ErrValidation, "content is required")
	}
	return c, nil
}

func (s *PostService) start(ctx context.Context, name string, requester policies.Requester, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.Bool("requester.authenticated", requester.Present))
	if requester.Present {
		attrs = append(attrs, attribute.Int64("requester.id", requester.UserID))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// checkImageURL accepts "", an image uploaded by ownerID or an absolute
// http(s) URL.
func checkImageURL(raw string, ownerID int64) error {
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, upload.URLPrefix) {
		if !upload.OwnedBy(raw, ownerID) {
			return newError(ErrValidation, "imageUrl must be one of your own uploads")
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return newError(ErrValidation, "imageUrl must be an uploaded image or an http(s) URL")
	}
	return nil
}

func denial(d policies.Decision) error {
	if d.Reason == policies.ReasonUnauthenticated {
		return newError(ErrUnauthenticated, "authentication required")
	}
	return newError(ErrForbidden, "you do not have access to this post")
}

func validate(in any) error {
	if err := validator.Validate(in); err != nil {
		return newError(ErrValidation, validator.Message(validator.Errors(err)))
	}
	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func paged(posts []db.Post, total int64, paging db.PagingParams) db.PagedResult[db.Post] {
	return db.PagedResult[db.Post]{
		Items:       posts,
		TotalItems:  int(total),
		CurrentPage: paging.CurrentPage(),
		PerPage:     paging.Limit(),
	}
}
