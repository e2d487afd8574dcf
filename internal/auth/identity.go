package auth

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/lensfolio/folio-admin/internal/cache"
	"github.com/lensfolio/folio-admin/internal/model"
)

// ErrNotAdmin is returned when the resolved user is not an admin.
var ErrNotAdmin = errors.New("user is not an admin")

// ErrNoToken is returned when there is no token to resolve.
var ErrNoToken = errors.New("no session token")

// Directory resolves a backend token to its user.
type Directory interface {
	Me(ctx context.Context, token string) (*model.User, error)
}

// Identities resolves tokens through a Directory, optionally caching
// results for a short TTL. Only successful lookups are cached.
type Identities struct {
	dir   Directory
	cache *cache.TypedCache[model.User]
}

// NewIdentities returns a resolver. A nil cacher or a zero ttl disables caching.
func NewIdentities(dir Directory, c cache.Cacher, ttl time.Duration) *Identities {
	id := &Identities{dir: dir}
	if c != nil && ttl > 0 {
		id.cache = cache.NewTypedCache[model.User](c, ttl)
	}
	return id
}

// Resolve returns the user owning token.
func (i *Identities) Resolve(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if i.cache == nil {
		return i.dir.Me(ctx, token)
	}
	return i.cache.GetOrSet(ctx, cacheKey(token), func() (*model.User, error) {
		return i.dir.Me(ctx, token)
	})
}

// ResolveAdmin resolves token and rejects non-admin users with ErrNotAdmin.
func (i *Identities) ResolveAdmin(ctx context.Context, token string) (*model.User, error) {
	u, err := i.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if !u.IsAdmin() {
		return u, fmt.Errorf("%w: role %q", ErrNotAdmin, u.Role)
	}
	return u, nil
}

// Forget drops the cached identity of token.
func (i *Identities) Forget(ctx context.Context, token string) {
	if i.cache == nil || token == "" {
		return
	}
	_ = i.cache.Delete(ctx, cacheKey(token))
}

// cacheKey hashes the token so raw bearer tokens never reach the cache backend.
func cacheKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return "identity:" + hex.EncodeToString(sum[:])
}
