package errorpage

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tendant/realm-console/pkg/locale"
	"github.com/tendant/realm-console/pkg/realm"
	"github.com/tendant/realm-console/pkg/theme"
)

// URLBean exposes the URLs a login page links to.
type URLBean struct {
	LoginURL            string
	LoginRestartFlowURL string
	ResourcesPath       string
	ResourcesURL        string
	ResourcesCommonPath string
}

func newURLBean(r *realm.Realm, th theme.Theme, base *url.URL, resourcesVersion string) *URLBean {
	resources := base.JoinPath("resources", resourcesVersion, string(th.Type()), th.Name())
	common := base.JoinPath("resources", resourcesVersion, "common", "keycloak")
	return &URLBean{
		LoginURL:            base.JoinPath("realms", r.Name, "protocol", "openid-connect", "auth").String(),
		LoginRestartFlowURL: base.JoinPath("realms", r.Name, "login-actions", "restart").String(),
		ResourcesPath:       resources.EscapedPath(),
		ResourcesURL:        resources.String(),
		ResourcesCommonPath: common.EscapedPath(),
	}
}

// LocaleLink switches the page to another locale.
type LocaleLink struct {
	LanguageTag string
	Label       string
	URL         string
}

// LocaleBean describes the current locale and the realm's alternatives.
type LocaleBean struct {
	Current            string
	CurrentLanguageTag string
	Supported          []LocaleLink
}

func newLocaleBean(r *realm.Realm, current language.Tag, base *url.URL, messages map[string]string) *LocaleBean {
	bean := &LocaleBean{
		Current:            locale.Label(current, messages),
		CurrentLanguageTag: current.String(),
	}
	for _, tag := range locale.Supported(r) {
		link := *base
		q := link.Query()
		q.Set(locale.QueryParam, tag.String())
		link.RawQuery = q.Encode()
		bean.Supported = append(bean.Supported, LocaleLink{
			LanguageTag: tag.String(),
			Label:       locale.Label(tag, messages),
			URL:         link.String(),
		})
	}
	return bean
}

// MessageType classifies a MessageBean.
type MessageType string

const (
	MessageTypeSuccess MessageType = "success"
	MessageTypeWarning MessageType = "warning"
	MessageTypeError   MessageType = "error"
	MessageTypeInfo    MessageType = "info"
)

// MessageBean is a single user facing message.
type MessageBean struct {
	Summary string
	Type    MessageType
}

func (m *MessageBean) IsError() bool   { return m.Type == MessageTypeError }
func (m *MessageBean) IsWarning() bool { return m.Type == MessageTypeWarning }

// MessageKey selects the catalog key of the message shown for status.
func MessageKey(status int) string {
	if status == 404 {
		return MessagePageNotFound
	}
	return MessageInternalServerError
}

// MessageFormatter looks up catalog entries and fills "{0}" style
// placeholders. Unknown keys render as the key itself.
type MessageFormatter struct {
	locale   language.Tag
	messages map[string]string
	printer  *message.Printer
}

func NewMessageFormatter(tag language.Tag, messages map[string]string) (*MessageFormatter, error) {
	if messages == nil {
		return nil, fmt.Errorf("no messages for locale %s", tag)
	}
	return &MessageFormatter{
		locale:   tag,
		messages: messages,
		printer:  message.NewPrinter(tag),
	}, nil
}

func (f *MessageFormatter) Locale() string { return f.locale.String() }

// Get returns the formatted message for key.
func (f *MessageFormatter) Get(key string, args ...any) string {
	pattern, ok := f.messages[key]
	if !ok {
		return key
	}
	return f.format(pattern, args)
}

func (f *MessageFormatter) format(pattern string, args []any) string {
	if len(args) == 0 || !strings.Contains(pattern, "{") {
		return strings.ReplaceAll(pattern, "''", "'")
	}

	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '{' {
			b.WriteByte(c)
			continue
		}
		end := strings.IndexByte(pattern[i:], '}')
		if end < 0 {
			b.WriteString(pattern[i:])
			break
		}
		idx, err := strconv.Atoi(pattern[i+1 : i+end])
		if err != nil || idx < 0 || idx >= len(args) {
			b.WriteString(pattern[i : i+end+1])
		} else {
			b.WriteString(f.printer.Sprint(args[idx]))
		}
		i += end
	}
	return strings.ReplaceAll(b.String(), "''", "'")
}
