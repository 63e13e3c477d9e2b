package theme

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
)

const defaultCachedThemes = 256

// CachingProvider is a read-through cache in front of another Provider.
// Failed lookups are not cached.
type CachingProvider struct {
	next  Provider
	cache *ristretto.Cache[string, Theme]
}

// NewCachingProvider caches up to maxThemes resolved themes. A value <= 0
// selects a default size.
func NewCachingProvider(next Provider, maxThemes int64) (*CachingProvider, error) {
	if maxThemes <= 0 {
		maxThemes = defaultCachedThemes
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, Theme]{
		NumCounters:        maxThemes * 10,
		MaxCost:            maxThemes,
		BufferItems:        64,
		// cost counts themes, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create theme cache: %w", err)
	}
	return &CachingProvider{next: next, cache: cache}, nil
}

func (p *CachingProvider) GetTheme(name string, t Type) (Theme, error) {
	key := string(t) + "/" + name
	if th, ok := p.cache.Get(key); ok {
		return th, nil
	}

	th, err := p.next.GetTheme(name, t)
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, th, 1)
	return th, nil
}

// Wait blocks until pending cache writes are applied.
func (p *CachingProvider) Wait() { p.cache.Wait() }

func (p *CachingProvider) Close() { p.cache.Close() }
