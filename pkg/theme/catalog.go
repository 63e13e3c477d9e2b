package theme

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

const messagesDir = "messages"

// catalogSet holds the parsed catalogs of a single theme directory keyed by
// language tag.
type catalogSet map[string]map[string]string

func newBundle() *i18n.Bundle {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	return bundle
}

// loadCatalogs parses every messages/messages.<lang>.toml below dir. A
// missing messages directory yields an empty set.
func loadCatalogs(fsys fs.FS, dir string) (catalogSet, error) {
	set := catalogSet{}
	msgDir := path.Join(dir, messagesDir)

	entries, err := fs.ReadDir(fsys, msgDir)
	if errors.Is(err, fs.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", msgDir, err)
	}

	bundle := newBundle()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "messages.") || !strings.HasSuffix(name, ".toml") {
			continue
		}
		file := path.Join(msgDir, name)
		buf, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		mf, err := bundle.ParseMessageFileBytes(buf, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}

		key := mf.Tag.String()
		catalog := set[key]
		if catalog == nil {
			catalog = make(map[string]string, len(mf.Messages))
			set[key] = catalog
		}
		for _, m := range mf.Messages {
			catalog[m.ID] = m.Other
		}
	}
	return set, nil
}

// fallbackTags lists the catalogs consulted for tag, lowest precedence
// first: English, the base language, then the tag itself.
func fallbackTags(tag language.Tag) []string {
	out := []string{language.English.String()}
	add := func(s string) {
		for _, existing := range out {
			if existing == s {
				return
			}
		}
		out = append(out, s)
	}
	if base, conf := tag.Base(); conf != language.No {
		add(language.Make(base.String()).String())
	}
	if tag != language.Und {
		add(tag.String())
	}
	return out
}
