package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// EnvVar is the environment variable consulted first.
const EnvVar = "SCRY_API_TOKEN"

// ErrNoCredential is returned when no source can provide a token.
var ErrNoCredential = errors.New("no credential available")

// Credential is a resolved bearer token.
type Credential struct {
	Token string

	// Source names where the token came from; it is safe to log.
	Source string

	// ExpiresAt is zero for tokens without a known expiry.
	ExpiresAt time.Time
}

// Source yields a credential or ErrNoCredential.
type Source interface {
	Credential(ctx context.Context) (Credential, error)
}

// EnvSource reads a token from an environment variable.
type EnvSource struct {
	Name string

	// LookupFn replaces os.LookupEnv in tests.
	LookupFn func(string) (string, bool)
}

// NewEnvSource reads EnvVar.
func NewEnvSource() *EnvSource {
	return &EnvSource{Name: EnvVar, LookupFn: os.LookupEnv}
}

// Credential implements Source.
func (s *EnvSource) Credential(context.Context) (Credential, error) {
	lookup := s.LookupFn
	if lookup == nil {
		lookup = os.LookupEnv
	}
	value, ok := lookup(s.Name)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return Credential{}, ErrNoCredential
	}
	return Credential{Token: value, Source: "env"}, nil
}

// StaticSource returns a fixed token, typically from configuration.
type StaticSource struct {
	token string
}

// NewStaticSource creates a StaticSource. An empty token yields ErrNoCredential.
func NewStaticSource(token string) *StaticSource {
	return &StaticSource{token: strings.TrimSpace(token)}
}

// Credential implements Source.
func (s *StaticSource) Credential(context.Context) (Credential, error) {
	if s.token == "" {
		return Credential{}, ErrNoCredential
	}
	return Credential{Token: s.token, Source: "config"}, nil
}

// minSecretLength matches the HMAC key length the remote service accepts.
const minSecretLength = 32

// SignedTokenSource mints HS256 tokens for a subject.
type SignedTokenSource struct {
	signingKey []byte
	subject    string
	lifetime   time.Duration
	timeFunc   func() time.Time
}

// signedClaims is the claim set minted by SignedTokenSource.
type signedClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// NewSignedTokenSource creates a SignedTokenSource. The secret must be at
// least 32 bytes.
func NewSignedTokenSource(secret, subject string, lifetime time.Duration) (*SignedTokenSource, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d characters", minSecretLength)
	}
	if subject == "" {
		return nil, errors.New("token subject cannot be empty")
	}
	if lifetime <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}
	return &SignedTokenSource{
		signingKey: []byte(secret),
		subject:    subject,
		lifetime:   lifetime,
		timeFunc:   time.Now,
	}, nil
}

// Credential implements Source.
func (s *SignedTokenSource) Credential(context.Context) (Credential, error) {
	now := s.timeFunc()
	expiresAt := now.Add(s.lifetime)

	claims := signedClaims{
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "scry-capture",
			Subject:   s.subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to sign token with HMAC-SHA256: %w", err)
	}

	return Credential{Token: signed, Source: "signed", ExpiresAt: expiresAt}, nil
}
