// Package auth turns bearer credentials into user identities.
//
// A Resolver is a pure function of (credential, secret, clock): it holds no
// mutable state and is safe for concurrent use.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultIssuer   = "goth-blog"
	DefaultTokenTTL = 24 * time.Hour
)

var (
	ErrInvalidUser    = errors.New("invalid user id")
	ErrEmptySecret    = errors.New("token secret is empty")
	ErrInvalidSubject = errors.New("token subject does not match user")
)

type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

type Resolver struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Resolver)

func WithIssuer(issuer string) Option {
	return func(r *Resolver) { r.issuer = issuer }
}

func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithClock replaces time.Now for both issuing and validation.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(secret string, opts ...Option) (*Resolver, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	r := &Resolver{
		secret: []byte(secret),
		issuer: DefaultIssuer,
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(r.issuer),
		jwt.WithTimeFunc(r.now),
	)
	return r, nil
}

// Issue mints a signed token for userID, valid for the configured TTL.
func (r *Resolver) Issue(userID int64) (string, error) {
	if userID <= 0 {
		return "", ErrInvalidUser
	}

	now := r.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns its claims.
func (r *Resolver) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := r.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	if claims.UserID <= 0 {
		return nil, ErrInvalidUser
	}
	if claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, ErrInvalidSubject
	}
	return claims, nil
}

// Resolve returns the user a credential identifies. Any empty, malformed,
// expired or forged credential resolves to anonymous (ok == false).
func (r *Resolver) Resolve(credential string) (userID int64, ok bool) {
	if credential == "" {
		return 0, false
	}
	claims, err := r.Verify(credential)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively; anything else
// yields "".
func BearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return ""
	}
	return token
}
