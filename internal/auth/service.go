package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/feedmill/feedmill/internal/shared"
)

const minPasswordLength = 8

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService constructs a new Service signing tokens with secret.
func NewService(repo Repository, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{repo: repo, secret: []byte(secret), ttl: ttl, now: time.Now}
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return LoginResult{}, err
	}
	token, err := s.IssueToken(*user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{ID: user.ID, Username: user.Username, Token: token}, nil
}

// IssueToken signs an HS256 token for user.
func (s *Service) IssueToken(user User) (string, error) {
	now := s.now()
	c := claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies raw and returns the principal it names.
func (s *Service) ParseToken(raw string) (shared.Principal, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return shared.Principal{}, shared.ErrUnauthorized
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return shared.Principal{}, shared.ErrUnauthorized
	}
	return shared.Principal{UserID: id, Username: c.Username}, nil
}

// Me loads the user behind the request principal.
func (s *Service) Me(ctx context.Context) (*User, error) {
	p, ok := shared.PrincipalFromContext(ctx)
	if !ok {
		return nil, shared.ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, p.UserID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrUnauthorized
	}
	return user, err
}

// CreateUser hashes password and stores a new active user.
func (s *Service) CreateUser(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, shared.Invalid("username is required")
	}
	if len(password) < minPasswordLength {
		return nil, shared.Invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.Create(ctx, username, string(hash))
}
