package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PauloHFS/goth-blog/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedFixtures []byte

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type seedUser struct {
	Username string     `yaml:"username"`
	Email    string     `yaml:"email"`
	Password string     `yaml:"password"`
	Posts    []seedPost `yaml:"posts"`
}

type seedPost struct {
	Title      string     `yaml:"title"`
	Content    string     `yaml:"content"`
	Visibility Visibility `yaml:"visibility"`
	ImageUrl   string     `yaml:"image_url"`
}

// Seed carrega os usuários e posts de demonstração. Usuários já existentes
// são ignorados, então rodar duas vezes não duplica nada.
func Seed(ctx context.Context, dbConn *sql.DB) error {
	return SeedFrom(ctx, dbConn, seedFixtures)
}

func SeedFrom(ctx context.Context, dbConn *sql.DB, fixtures []byte) error {
	var file seedFile
	if err := yaml.Unmarshal(fixtures, &file); err != nil {
		return fmt.Errorf("failed to parse seed fixtures: %w", err)
	}

	queries := New(dbConn)
	for _, u := range file.Users {
		email := strings.ToLower(u.Email)
		exists, err := queries.UserExists(ctx, UserExistsParams{Username: u.Username, Email: email})
		if err != nil {
			return fmt.Errorf("failed to check user %s: %w", u.Username, err)
		}
		if exists {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", u.Username, err)
		}
		user, err := queries.CreateUser(ctx, CreateUserParams{
			Username:     u.Username,
			Email:        email,
			PasswordHash: string(hash),
			CreatedAt:    time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Username, err)
		}

		for _, p := range u.Posts {
			visibility := p.Visibility
			if visibility == "" {
				visibility = VisibilityPublic
			}
			if !visibility.Valid() {
				return fmt.Errorf("seed post %q: invalid visibility %q", p.Title, visibility)
			}
			if _, err := queries.CreatePost(ctx, CreatePostParams{
				ID:         uuid.NewString(),
				AuthorID:   user.ID,
				Title:      p.Title,
				Content:    p.Content,
				ImageUrl:   sql.NullString{String: p.ImageUrl, Valid: p.ImageUrl != ""},
				Visibility: visibility,
				CreatedAt:  time.Now(),
			}); err != nil {
				return fmt.Errorf("failed to seed post %q: %w", p.Title, err)
			}
		}

		logging.Get().InfoContext(ctx, "seeded user",
			slog.String("username", user.Username),
			slog.Int("posts", len(u.Posts)),
		)
	}
	return nil
}
