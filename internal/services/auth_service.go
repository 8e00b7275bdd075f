package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/logging"
	"github.com/PauloHFS/goth-blog/internal/policies"
	"github.com/PauloHFS/goth-blog/internal/validator"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	GetUserByID(ctx context.Context, id int64) (db.User, error)
	UserExists(ctx context.Context, arg db.UserExistsParams) (bool, error)
}

type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

type AuthService struct {
	users    UserStore
	tokens   TokenIssuer
	hashCost int
}

func NewAuthService(users UserStore, tokens TokenIssuer) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
	}
}

// WithHashCost sets the bcrypt cost; tests use bcrypt.MinCost.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.hashCost = cost
	return s
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginOutput struct {
	Token string
	User  db.User
}

var errInvalidCredentials = newError(ErrUnauthenticated, "invalid email or password")

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (db.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	validation := validator.ValidateRegistration(input.Username, input.Email, input.Password)
	if !validation.Valid {
		return db.User{}, fail(span, newError(ErrValidation, validator.Message(validation.Errors)))
	}

	exists, err := s.users.UserExists(ctx, db.UserExistsParams{Username: input.Username, Email: input.Email})
	if err != nil {
		return db.User{}, fail(span, fmt.Errorf("check user exists: %w", err))
	}
	if exists {
		return db.User{}, fail(span, newError(ErrValidation, "user already exists"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return db.User{}, fail(span, fmt.Errorf("hash password: %w", err))
	}

	user, err := s.users.CreateUser(ctx, db.CreateUserParams{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return db.User{}, fail(span, newError(ErrValidation, "user already exists"))
		}
		return db.User{}, fail(span, fmt.Errorf("create user: %w", err))
	}

	span.SetAttributes(attribute.Int64("user.id", user.ID))
	logging.AddToEvent(ctx, slog.Int64("user_id", user.ID))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginOutput, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return LoginOutput{}, fail(span, newError(ErrValidation, "email and password are required"))
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LoginOutput{}, fail(span, errInvalidCredentials)
		}
		return LoginOutput{}, fail(span, fmt.Errorf("get user by email: %w", err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return LoginOutput{}, fail(span, errInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return LoginOutput{}, fail(span, fmt.Errorf("issue token: %w", err))
	}

	logging.AddToEvent(ctx, slog.Int64("user_id", user.ID))
	return LoginOutput{Token: token, User: user}, nil
}

// Me returns the requester's own account.
func (s *AuthService) Me(ctx context.Context, requester policies.Requester) (db.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Me")
	defer span.End()

	if !requester.Present {
		return db.User{}, fail(span, newError(ErrUnauthenticated, "authentication required"))
	}
	user, err := s.users.GetUserByID(ctx, requester.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.User{}, fail(span, newError(ErrNotFound, "user not found"))
		}
		return db.User{}, fail(span, fmt.Errorf("get user: %w", err))
	}
	return user, nil
}
