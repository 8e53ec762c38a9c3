package oidc

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

const jwksCacheTTL = 1 * time.Hour

type cachedKeySet struct {
	keys    jwk.Set
	expires time.Time
}

// JWKSManager fetches and caches JWKS key sets per URL. Token verification
// happens on every authenticated request, so key sets are held for
// jwksCacheTTL before refetching.
type JWKSManager struct {
	mu     sync.RWMutex
	cache  map[string]cachedKeySet
	client *http.Client
}

// NewJWKSManager creates a new JWKS manager
func NewJWKSManager() *JWKSManager {
	return &JWKSManager{
		cache:  make(map[string]cachedKeySet),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetJWKS returns the key set for jwksURL, fetching it when the cached copy
// is missing or expired.
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.RLock()
	entry, ok := m.cache[jwksURL]
	m.mu.RUnlock()

	if ok && entry.keys != nil && time.Now().Before(entry.expires) {
		return entry.keys, nil
	}

	keys, err := jwk.Fetch(ctx, jwksURL, jwk.WithHTTPClient(m.client))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	m.mu.Lock()
	m.cache[jwksURL] = cachedKeySet{keys: keys, expires: time.Now().Add(jwksCacheTTL)}
	m.mu.Unlock()

	return keys, nil
}
