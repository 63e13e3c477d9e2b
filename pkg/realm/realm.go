package realm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/realm-console/pkg/errors"
)

// DefaultAdminRealm is the administrative realm every installation has.
const DefaultAdminRealm = "master"

var (
	ErrRealmNotFound = errors.New(errors.ErrCodeRealmNotFound, "realm not found")
	ErrRealmExists   = errors.New(errors.ErrCodeAlreadyExists, "realm already exists")
)

// Realm is an isolated configuration domain with its own theme and locale
// settings.
type Realm struct {
	ID                          uuid.UUID `json:"id"`
	Name                        string    `json:"name"`
	DisplayName                 string    `json:"display_name,omitempty"`
	DisplayNameHTML             string    `json:"display_name_html,omitempty"`
	Enabled                     bool      `json:"enabled"`
	LoginTheme                  string    `json:"login_theme,omitempty"`
	InternationalizationEnabled bool      `json:"internationalization_enabled"`
	SupportedLocales            []string  `json:"supported_locales,omitempty"`
	DefaultLocale               string    `json:"default_locale,omitempty"`
	CreatedAt                   time.Time `json:"created_at"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

// Finder looks realms up by name. Implementations return an error matching
// ErrRealmNotFound when the realm does not exist.
type Finder interface {
	FindByName(ctx context.Context, name string) (*Realm, error)
}

// Repository stores realms.
type Repository interface {
	Finder
	FindByID(ctx context.Context, id uuid.UUID) (*Realm, error)
	List(ctx context.Context) ([]Realm, error)
	Create(ctx context.Context, r Realm) (*Realm, error)
	Update(ctx context.Context, r Realm) (*Realm, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

func prepareNew(r Realm) Realm {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	return r
}

func cloneRealm(r *Realm) *Realm {
	c := *r
	if r.SupportedLocales != nil {
		c.SupportedLocales = append([]string(nil), r.SupportedLocales...)
	}
	return &c
}
