package realm

import (
	"context"
	"fmt"

	"github.com/tendant/realm-console/pkg/errors"
)

// Resolver maps request paths to realms.
type Resolver struct {
	finder     Finder
	adminRealm string
}

// NewResolver creates a resolver falling back to adminRealm. An empty name
// selects DefaultAdminRealm.
func NewResolver(finder Finder, adminRealm string) *Resolver {
	if adminRealm == "" {
		adminRealm = DefaultAdminRealm
	}
	return &Resolver{finder: finder, adminRealm: adminRealm}
}

func (r *Resolver) AdminRealm() string { return r.adminRealm }

// Resolve returns the realm named in path, or the administrative realm when
// the path names none or names one that does not exist. Store failures other
// than not-found are returned as is. A missing administrative realm is an
// error.
func (r *Resolver) Resolve(ctx context.Context, path string) (*Realm, error) {
	name, ok := ParseRealmName(path)
	if !ok {
		name = r.adminRealm
	}

	found, err := r.find(ctx, name)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, ErrRealmNotFound) || name == r.adminRealm {
		return nil, err
	}

	found, err = r.find(ctx, r.adminRealm)
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *Resolver) find(ctx context.Context, name string) (*Realm, error) {
	found, err := r.finder.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find realm %q: %w", name, err)
	}
	if found == nil {
		return nil, fmt.Errorf("find realm %q: %w", name, ErrRealmNotFound)
	}
	return found, nil
}
