// Package auth registers accounts, checks passwords and issues the bearer
// tokens that identify the caller of a recommendation request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

const issuer = "futureroot"

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned for malformed, expired or forged tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Registration holds the fields of a new account.
type Registration struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
}

// Session is returned after a successful register or login.
type Session struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// Options tune token lifetime and hashing cost.
type Options struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
	Clock      clockwork.Clock
}

// Service implements account registration, login and token parsing.
type Service struct {
	users  domain.UserRepository
	secret []byte
	ttl    time.Duration
	cost   int
	clock  clockwork.Clock
}

// NewService returns an error if no signing secret is configured.
func NewService(users domain.UserRepository, opts Options) (*Service, error) {
	if opts.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Service{
		users:  users,
		secret: []byte(opts.Secret),
		ttl:    opts.TokenTTL,
		cost:   opts.BcryptCost,
		clock:  opts.Clock,
	}, nil
}

// Register creates an account and signs a token for it. Emails are stored
// lowercased.
func (s *Service) Register(ctx context.Context, r Registration) (Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	u := domain.User{
		Username:     strings.TrimSpace(r.Username),
		Email:        normalizeEmail(r.Email),
		FirstName:    strings.TrimSpace(r.FirstName),
		LastName:     strings.TrimSpace(r.LastName),
		PhoneNumber:  strings.TrimSpace(r.PhoneNumber),
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now().UTC(),
	}
	id, err := s.users.CreateUser(ctx, u)
	if err != nil {
		return Session{}, err
	}
	u.ID = id
	return s.session(u)
}

// Login checks the password of the account registered under email.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(u)
}

// IssueToken signs an HS256 token whose subject is the user ID.
func (s *Service) IssueToken(userID int64) (string, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken returns the user ID carried by a valid token.
func (s *Service) ParseToken(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return id, nil
}

func (s *Service) session(u domain.User) (Session, error) {
	token, err := s.IssueToken(u.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
