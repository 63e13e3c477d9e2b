package theme

import (
	"golang.org/x/text/language"

	"github.com/tendant/realm-console/pkg/errors"
)

// Type is the page category a theme applies to.
type Type string

const (
	TypeLogin   Type = "login"
	TypeAccount Type = "account"
	TypeAdmin   Type = "admin"
	TypeEmail   Type = "email"
)

// DefaultThemeName is used when a realm does not configure a theme.
const DefaultThemeName = "keycloak"

const propertyParent = "parent"

var (
	ErrThemeNotFound    = errors.New(errors.ErrCodeThemeNotFound, "theme not found")
	ErrTemplateNotFound = errors.New(errors.ErrCodeTemplateNotFound, "template not found")
)

// Theme is a named bundle of templates, message catalogs and properties for
// one page category. Lookups walk the extension chain, child first.
type Theme interface {
	Name() string
	Type() Type
	// ParentName is empty for a root theme.
	ParentName() string
	// Template returns the source of the named template.
	Template(name string) (string, error)
	// Messages returns the catalog for tag. Entries missing for tag fall
	// back to its base language and then to English.
	Messages(tag language.Tag) (map[string]string, error)
	Properties() (map[string]string, error)
}

// Provider resolves themes by name. An empty name selects the provider's
// default theme.
type Provider interface {
	GetTheme(name string, t Type) (Theme, error)
}

// TemplateEngine renders a theme template against a set of attributes.
type TemplateEngine interface {
	Render(name string, attrs map[string]any, th Theme) (string, error)
}
