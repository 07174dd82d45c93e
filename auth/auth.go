// Package auth registers users, checks passwords and issues the HS256
// bearer tokens the HTTP API accepts.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	pdftemplate "github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/store"
)

// maxPasswordBytes is the longest input bcrypt accepts. Longer passwords are
// truncated, both when hashing and when checking.
const maxPasswordBytes = 72

// DefaultCost is the bcrypt cost used for new passwords.
const DefaultCost = 12

// Claims are the claims carried by an access token. Subject holds the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserStore is the subset of store.Users the service needs.
type UserStore interface {
	Get(username string) (*store.User, error)
	Create(u store.User) error
}

// Service authenticates users against a UserStore.
type Service struct {
	users  UserStore
	secret []byte
	cost   int
	ttl    time.Duration
	now    func() time.Time
}

// Option is a functional option for configuring a Service.
type Option func(*Service)

// WithCost sets the bcrypt cost.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithTokenTTL makes issued tokens expire after d. Zero means no expiry.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Service) { s.ttl = d }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service signing tokens with secret.
func New(users UserStore, secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	s := &Service{users: users, secret: []byte(secret), cost: DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HashPassword hashes password with bcrypt.
func HashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword(truncate(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(password)) == nil
}

func truncate(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

// Register creates a user. Duplicate usernames or emails are
// pdftemplate.ErrConflict.
func (s *Service) Register(username, email, password string) (*store.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, pdftemplate.Invalidf("username, email and password are required")
	}
	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}
	u := store.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		CreatedAt:      pdftemplate.Timestamp(s.now()),
	}
	if err := s.users.Create(u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate checks a username and password. Any mismatch is
// pdftemplate.ErrUnauthorized.
func (s *Service) Authenticate(username, password string) (*store.User, error) {
	u, err := s.users.Get(username)
	if errors.Is(err, pdftemplate.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", pdftemplate.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(u.HashedPassword, password) {
		return nil, fmt.Errorf("%w: invalid credentials", pdftemplate.ErrUnauthorized)
	}
	return u, nil
}

// IssueToken returns a signed access token for u.
func (s *Service) IssueToken(u *store.User) (string, error) {
	now := s.now()
	claims := Claims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  u.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return tok, nil
}

// ParseToken verifies a token and returns its claims. Invalid, expired or
// foreign tokens are pdftemplate.ErrUnauthorized.
func (s *Service) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pdftemplate.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", pdftemplate.ErrUnauthorized)
	}
	return claims, nil
}
