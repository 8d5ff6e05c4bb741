// Package token issues and verifies the signed tokens used by the auth flow.
//
// Access, refresh and email-verification tokens live in independent signing
// domains: each domain has its own HMAC secret and lifetime, so a token issued
// for one domain fails signature verification in any other.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "inventory"

// Domain identifies a signing domain
type Domain int

const (
	// Access short-lived token sent as bearer header
	Access Domain = iota
	// Refresh long-lived token carried in the refresh cookie
	Refresh
	// EmailVerification single-purpose token embedded in the verification link
	EmailVerification
)

func (d Domain) String() string {
	switch d {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	case EmailVerification:
		return "email_verification"
	default:
		return fmt.Sprintf("domain(%d)", int(d))
	}
}

var (
	// ErrExpired token signature is valid but the token has expired
	ErrExpired = errors.New("token expired")
	// ErrInvalid token is malformed, has a bad signature or wrong claims
	ErrInvalid = errors.New("invalid token")
)

// Key holds the secret and lifetime of a domain
type Key struct {
	Secret []byte
	TTL    time.Duration
}

// Config holds keys for all domains
type Config struct {
	Access            Key
	Refresh           Key
	EmailVerification Key
}

// Payload is the data put into a token
type Payload struct {
	UserID string
	Email  string
}

// Claims represents the JWT claims of all domains
// UserID is empty for email-verification tokens
type Claims struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service provides token generation and validation
type Service struct {
	now  func() time.Time
	keys map[Domain]Key
}

// Option configures Service
type Option func(*Service)

// WithClock overrides the time source (used in tests)
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates token service
// Returns error when a secret is empty or two domains share a secret
func NewService(cfg Config, opts ...Option) (*Service, error) {
	keys := map[Domain]Key{
		Access:            cfg.Access,
		Refresh:           cfg.Refresh,
		EmailVerification: cfg.EmailVerification,
	}

	seen := make(map[string]Domain, len(keys))
	for _, d := range []Domain{Access, Refresh, EmailVerification} {
		k := keys[d]
		if len(k.Secret) == 0 {
			return nil, fmt.Errorf("%s secret is empty", d)
		}
		if k.TTL <= 0 {
			return nil, fmt.Errorf("%s ttl must be positive", d)
		}
		if other, ok := seen[string(k.Secret)]; ok {
			return nil, fmt.Errorf("%s and %s must use different secrets", other, d)
		}
		seen[string(k.Secret)] = d
	}

	s := &Service{
		keys: keys,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// TTL returns lifetime of tokens of the domain
func (s *Service) TTL(d Domain) time.Duration {
	return s.keys[d].TTL
}

// Sign creates a signed token for the domain
func (s *Service) Sign(d Domain, p Payload) (string, error) {
	key, ok := s.keys[d]
	if !ok {
		return "", fmt.Errorf("unknown token domain %s", d)
	}

	if p.Email == "" {
		return "", fmt.Errorf("email is required")
	}

	claims := Claims{
		Email: p.Email,
	}
	if d != EmailVerification {
		if p.UserID == "" {
			return "", fmt.Errorf("user id is required for %s token", d)
		}
		claims.UserID = p.UserID
		claims.Subject = p.UserID
	}

	now := s.now()
	claims.RegisteredClaims.Issuer = issuer
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.NotBefore = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(key.TTL))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", d, err)
	}

	return signed, nil
}

// Verify validates the token against the domain key
// Returns ErrExpired or ErrInvalid (wrapping the cause) on failure
func (s *Service) Verify(d Domain, tokenString string) (*Claims, error) {
	key, ok := s.keys[d]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token domain %s", ErrInvalid, d)
	}
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalid)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if claims.Email == "" {
		return nil, fmt.Errorf("%w: email claim is missing", ErrInvalid)
	}
	if d != EmailVerification && claims.UserID == "" {
		return nil, fmt.Errorf("%w: userId claim is missing", ErrInvalid)
	}

	return claims, nil
}
