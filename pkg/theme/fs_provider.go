package theme

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"sync"

	"github.com/magiconair/properties"
	"golang.org/x/text/language"
)

const (
	propertiesFile = "theme.properties"
	maxChainDepth  = 16
)

// FSProvider resolves themes laid out as <name>/<type>/ in a file system.
type FSProvider struct {
	fsys         fs.FS
	defaultTheme string
}

// NewFSProvider creates a provider over fsys. An empty defaultTheme selects
// DefaultThemeName.
func NewFSProvider(fsys fs.FS, defaultTheme string) *FSProvider {
	if defaultTheme == "" {
		defaultTheme = DefaultThemeName
	}
	return &FSProvider{fsys: fsys, defaultTheme: defaultTheme}
}

func (p *FSProvider) DefaultTheme() string { return p.defaultTheme }

// GetTheme loads the named theme and its parents.
func (p *FSProvider) GetTheme(name string, t Type) (Theme, error) {
	if name == "" {
		name = p.defaultTheme
	}

	th := &fsTheme{fsys: p.fsys, name: name, typ: t}
	merged := map[string]string{}
	seen := map[string]bool{}

	for current := name; current != ""; {
		if seen[current] {
			return nil, fmt.Errorf("theme %q: cyclic parent chain at %q", name, current)
		}
		if len(th.chain) == maxChainDepth {
			return nil, fmt.Errorf("theme %q: parent chain deeper than %d", name, maxChainDepth)
		}
		seen[current] = true

		dir := path.Join(current, string(t))
		props, err := p.loadProperties(dir)
		if err != nil {
			return nil, fmt.Errorf("theme %q (%s): %w", current, t, err)
		}
		th.chain = append(th.chain, dir)

		// child values were merged first and win
		for k, v := range props {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
		if current == name {
			th.parent = props[propertyParent]
		}
		current = props[propertyParent]
	}

	th.properties = merged
	return th, nil
}

func (p *FSProvider) loadProperties(dir string) (map[string]string, error) {
	info, err := fs.Stat(p.fsys, dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, ErrThemeNotFound
	}
	if err != nil {
		return nil, err
	}

	buf, err := fs.ReadFile(p.fsys, path.Join(dir, propertiesFile))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", propertiesFile, err)
	}
	props, err := properties.Load(buf, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", propertiesFile, err)
	}
	return props.Map(), nil
}

type fsTheme struct {
	fsys       fs.FS
	name       string
	typ        Type
	parent     string
	chain      []string // theme directories, child first
	properties map[string]string

	catalogsMu sync.Mutex
	catalogs   []catalogSet // parallel to chain, nil until loaded
}

func (t *fsTheme) Name() string       { return t.name }
func (t *fsTheme) Type() Type         { return t.typ }
func (t *fsTheme) ParentName() string { return t.parent }

func (t *fsTheme) Template(name string) (string, error) {
	for _, dir := range t.chain {
		buf, err := fs.ReadFile(t.fsys, path.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to read template %s: %w", name, err)
		}
		return string(buf), nil
	}
	return "", fmt.Errorf("%w: %s in theme %s", ErrTemplateNotFound, name, t.name)
}

func (t *fsTheme) Messages(tag language.Tag) (map[string]string, error) {
	catalogs, err := t.loadedCatalogs()
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", t.name, err)
	}

	out := map[string]string{}
	for _, lang := range fallbackTags(tag) {
		for i := len(catalogs) - 1; i >= 0; i-- {
			maps.Copy(out, catalogs[i][lang])
		}
	}
	return out, nil
}

// loadedCatalogs loads the chain's catalogs on first success. Failed loads
// are not kept, so a later call tries again.
func (t *fsTheme) loadedCatalogs() ([]catalogSet, error) {
	t.catalogsMu.Lock()
	defer t.catalogsMu.Unlock()
	if t.catalogs != nil {
		return t.catalogs, nil
	}

	sets := make([]catalogSet, 0, len(t.chain))
	for _, dir := range t.chain {
		set, err := loadCatalogs(t.fsys, dir)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	t.catalogs = sets
	return sets, nil
}

func (t *fsTheme) Properties() (map[string]string, error) {
	return maps.Clone(t.properties), nil
}
