package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/phrazzld/scry-capture/internal/config"
)

const (
	cacheKey = "credential"

	// DefaultCacheTTL bounds how long a token without expiry is reused.
	DefaultCacheTTL = time.Minute

	// refreshMargin renews expiring tokens before the server rejects them.
	refreshMargin = 30 * time.Second
)

// Resolver consults its sources in order and caches the first hit.
type Resolver struct {
	sources []Source
	cache   *cache.Cache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewResolver creates a Resolver over sources, consulted in the given order.
func NewResolver(logger *slog.Logger, sources ...Source) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		sources: sources,
		cache:   cache.New(DefaultCacheTTL, 5*time.Minute),
		ttl:     DefaultCacheTTL,
		logger:  logger.With("component", "credential_resolver"),
	}
}

// Resolve returns a bearer token or ErrNoCredential.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if cached, found := r.cache.Get(cacheKey); found {
		return cached.(string), nil
	}

	for _, source := range r.sources {
		cred, err := source.Credential(ctx)
		if errors.Is(err, ErrNoCredential) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to resolve credential: %w", err)
		}

		ttl := r.ttl
		if !cred.ExpiresAt.IsZero() {
			ttl = time.Until(cred.ExpiresAt) - refreshMargin
		}
		if ttl > 0 {
			r.cache.Set(cacheKey, cred.Token, ttl)
		}

		r.logger.Debug("credential resolved", "source", cred.Source)
		return cred.Token, nil
	}

	return "", ErrNoCredential
}

// Invalidate drops the cached token so the next Resolve consults the sources
// again. Callers use it after the server rejected the token.
func (r *Resolver) Invalidate() {
	r.cache.Delete(cacheKey)
}

// NewChain builds the standard resolver: environment, configured token, then
// a signed token when a signing secret is configured.
func NewChain(remote config.RemoteConfig, auth config.AuthConfig, subject string, logger *slog.Logger) (*Resolver, error) {
	sources := []Source{NewEnvSource(), NewStaticSource(remote.APIToken)}

	if auth.SigningSecret != "" {
		lifetime := time.Duration(auth.TokenLifetimeMinutes) * time.Minute
		signed, err := NewSignedTokenSource(auth.SigningSecret, subject, lifetime)
		if err != nil {
			return nil, fmt.Errorf("failed to create signed token source: %w", err)
		}
		sources = append(sources, signed)
	}

	return NewResolver(logger, sources...), nil
}
