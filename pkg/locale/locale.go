// Package locale picks the locale a page is rendered in.
package locale

import (
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/tendant/realm-console/pkg/realm"
)

const (
	QueryParam     = "kc_locale"
	UILocalesParam = "ui_locales"
	CookieName     = "KEYCLOAK_LOCALE"
)

// Hints are the locale preferences a request carries.
type Hints struct {
	QueryLocale    string
	UILocales      string
	CookieLocale   string
	AcceptLanguage string
}

// HintsFrom collects hints from request headers and query parameters.
func HintsFrom(h http.Header, query url.Values) Hints {
	hints := Hints{
		QueryLocale:    query.Get(QueryParam),
		UILocales:      query.Get(UILocalesParam),
		AcceptLanguage: h.Get("Accept-Language"),
	}
	for _, line := range h.Values("Cookie") {
		cookies, err := http.ParseCookie(line)
		if err != nil {
			continue
		}
		for _, c := range cookies {
			if c.Name == CookieName {
				hints.CookieLocale = c.Value
			}
		}
	}
	return hints
}

// Resolver chooses one of a realm's supported locales.
type Resolver struct{}

func NewResolver() *Resolver { return &Resolver{} }

// Resolve returns the locale for a request against r. Precedence: override,
// kc_locale query parameter, ui_locales, KEYCLOAK_LOCALE cookie,
// Accept-Language, realm default, English. Realms without
// internationalization always render in English.
func (res *Resolver) Resolve(hints Hints, r *realm.Realm, override *language.Tag) language.Tag {
	if r == nil || !r.InternationalizationEnabled {
		return language.English
	}

	supported := Supported(r)
	matcher := language.NewMatcher(supported)
	match := func(tags ...language.Tag) (language.Tag, bool) {
		if len(tags) == 0 {
			return language.Und, false
		}
		_, idx, conf := matcher.Match(tags...)
		if conf == language.No {
			return language.Und, false
		}
		return supported[idx], true
	}
	matchString := func(s string) (language.Tag, bool) {
		if s == "" {
			return language.Und, false
		}
		tag, err := language.Parse(s)
		if err != nil {
			return language.Und, false
		}
		return match(tag)
	}

	if override != nil {
		if tag, ok := match(*override); ok {
			return tag
		}
	}
	if tag, ok := matchString(hints.QueryLocale); ok {
		return tag
	}
	for _, ui := range strings.Fields(hints.UILocales) {
		if tag, ok := matchString(ui); ok {
			return tag
		}
	}
	if tag, ok := matchString(hints.CookieLocale); ok {
		return tag
	}
	if hints.AcceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(hints.AcceptLanguage); err == nil {
			if tag, ok := match(tags...); ok {
				return tag
			}
		}
	}
	if tag, ok := matchString(r.DefaultLocale); ok {
		return tag
	}
	return language.English
}

// Supported returns the parsed supported locales of r. A realm that lists
// none supports its default locale, or English.
func Supported(r *realm.Realm) []language.Tag {
	var out []language.Tag
	for _, s := range r.SupportedLocales {
		if tag, err := language.Parse(s); err == nil {
			out = append(out, tag)
		}
	}
	if len(out) == 0 {
		if tag, err := language.Parse(r.DefaultLocale); err == nil && r.DefaultLocale != "" {
			return []language.Tag{tag}
		}
		return []language.Tag{language.English}
	}
	return out
}

// Label returns the display name of tag, preferring the "locale_<tag>"
// catalog entry.
func Label(tag language.Tag, messages map[string]string) string {
	if label := messages["locale_"+tag.String()]; label != "" {
		return label
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return tag.String()
}
