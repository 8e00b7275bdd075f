package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/PauloHFS/goth-blog/internal/db"
)

// fakeStore is an in-memory PostStore and UserStore.
type fakeStore struct {
	mu      sync.Mutex
	users   map[int64]db.User
	posts   map[string]db.Post
	order   map[string]int
	seq     int
	jobs    []db.CreateJobParams
	lookups int

	// vanish makes the next write act as if the row was deleted concurrently.
	vanish bool
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[int64]db.User{},
		posts: map[string]db.Post{},
		order: map[string]int{},
	}
}

func (f *fakeStore) addUser(id int64, username string) db.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := db.User{ID: id, Username: username, Email: username + "@example.com"}
	f.users[id] = u
	return u
}

func (f *fakeStore) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return db.User{}, f.err
	}
	u := db.User{
		ID:           int64(len(f.users) + 1),
		Username:     arg.Username,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		CreatedAt:    arg.CreatedAt,
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return db.User{}, sql.ErrNoRows
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return db.User{}, sql.ErrNoRows
}

func (f *fakeStore) UserExists(_ context.Context, arg db.UserExistsParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == arg.Username || strings.EqualFold(u.Email, arg.Email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreatePost(_ context.Context, arg db.CreatePostParams) (db.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return db.Post{}, f.err
	}
	p := db.Post{
		ID:             arg.ID,
		AuthorID:       arg.AuthorID,
		AuthorUsername: f.users[arg.AuthorID].Username,
		Title:          arg.Title,
		Content:        arg.Content,
		ImageUrl:       arg.ImageUrl,
		Visibility:     arg.Visibility,
		CreatedAt:      arg.CreatedAt,
		UpdatedAt:      arg.CreatedAt,
	}
	f.seq++
	f.posts[p.ID] = p
	f.order[p.ID] = f.seq
	return p, nil
}

func (f *fakeStore) GetPostByID(_ context.Context, id string) (db.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return db.Post{}, f.err
	}
	if p, ok := f.posts[id]; ok {
		return p, nil
	}
	return db.Post{}, sql.ErrNoRows
}

func (f *fakeStore) UpdatePost(_ context.Context, arg db.UpdatePostParams, jobs ...db.CreateJobParams) (db.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[arg.ID]
	if !ok || f.vanish {
		return db.Post{}, sql.ErrNoRows
	}
	if arg.Title.Valid {
		p.Title = arg.Title.String
	}
	if arg.Content.Valid {
		p.Content = arg.Content.String
	}
	if arg.Visibility.Valid {
		p.Visibility = db.Visibility(arg.Visibility.String)
	}
	if arg.SetImageUrl {
		p.ImageUrl = sql.NullString{String: arg.ImageUrl, Valid: arg.ImageUrl != ""}
	}
	p.UpdatedAt = arg.UpdatedAt
	f.posts[arg.ID] = p
	f.jobs = append(f.jobs, jobs...)
	return p, nil
}

func (f *fakeStore) DeletePost(_ context.Context, id string, jobs ...db.CreateJobParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok || f.vanish {
		return sql.ErrNoRows
	}
	delete(f.posts, id)
	f.jobs = append(f.jobs, jobs...)
	return nil
}

func (f *fakeStore) sorted(keep func(db.Post) bool) []db.Post {
	out := []db.Post{}
	for _, p := range f.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return f.order[out[i].ID] > f.order[out[j].ID]
	})
	return out
}

func page(posts []db.Post, limit, offset int64) []db.Post {
	if offset >= int64(len(posts)) {
		return []db.Post{}
	}
	end := min(offset+limit, int64(len(posts)))
	return posts[offset:end]
}

func (f *fakeStore) ListPublicPosts(_ context.Context, arg db.ListPublicPostsParams) ([]db.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sorted(func(p db.Post) bool { return p.Visibility == db.VisibilityPublic })
	return page(all, arg.Limit, arg.Offset), nil
}

func (f *fakeStore) CountPublicPosts(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sorted(func(p db.Post) bool { return p.Visibility == db.VisibilityPublic }))), nil
}

func (f *fakeStore) ListPostsByAuthor(_ context.Context, arg db.ListPostsByAuthorParams) ([]db.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sorted(func(p db.Post) bool { return p.AuthorID == arg.AuthorID })
	return page(all, arg.Limit, arg.Offset), nil
}

func (f *fakeStore) CountPostsByAuthor(_ context.Context, authorID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sorted(func(p db.Post) bool { return p.AuthorID == authorID }))), nil
}
