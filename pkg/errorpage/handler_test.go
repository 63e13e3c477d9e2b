package errorpage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	idmerrors "github.com/tendant/realm-console/pkg/errors"
	"github.com/tendant/realm-console/pkg/realm"
	"github.com/tendant/realm-console/pkg/theme"
	"github.com/tendant/realm-console/pkg/txn"
)

const browserAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

type fixture struct {
	repo     *realm.InMemoryRepository
	provider theme.Provider
	logs     *bytes.Buffer
	recorder *fakeRecorder
}

func newFixture() *fixture {
	return &fixture{
		repo: realm.NewInMemoryRepository(
			realm.Realm{Name: "master", DisplayName: "Master Realm", Enabled: true},
			realm.Realm{
				Name:                        "foo",
				DisplayName:                 "Foo Corp",
				LoginTheme:                  "keycloak",
				Enabled:                     true,
				InternationalizationEnabled: true,
				SupportedLocales:            []string{"en", "fr"},
				DefaultLocale:               "en",
			},
		),
		provider: theme.NewFSProvider(theme.Embedded(), ""),
		logs:     &bytes.Buffer{},
		recorder: &fakeRecorder{},
	}
}

func (f *fixture) handler(opts ...Option) *Handler {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		WithRecorder(f.recorder),
		WithBasePath("/auth"),
	}
	return NewHandler(realm.NewResolver(f.repo, ""), f.provider, theme.NewHTMLEngine(false), append(base, opts...)...)
}

func htmlRequest(path string) Request {
	h := http.Header{}
	h.Set("Accept", browserAccept)
	return Request{
		Path:    path,
		Header:  h,
		BaseURI: &url.URL{Scheme: "https", Host: "sso.example.com", Path: "/auth"},
	}
}

func apiRequest(path string) Request {
	h := http.Header{}
	h.Set("Accept", "application/json")
	return Request{Path: path, Header: h}
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []string
	renders  int
}

func (r *fakeRecorder) ObserveErrorResponse(status int, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, fmt.Sprintf("%d:%s", status, outcome))
}

func (r *fakeRecorder) ObserveRender(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders++
}

// flakyTheme fails Messages from the failFrom-th call on.
type flakyTheme struct {
	theme.Theme
	mu       sync.Mutex
	calls    int
	failFrom int
	propsErr error
}

func (f *flakyTheme) Messages(tag language.Tag) (map[string]string, error) {
	f.mu.Lock()
	f.calls++
	calls := f.calls
	f.mu.Unlock()
	if f.failFrom > 0 && calls >= f.failFrom {
		return nil, errors.New("catalog unavailable")
	}
	return f.Theme.Messages(tag)
}

func (f *flakyTheme) Properties() (map[string]string, error) {
	if f.propsErr != nil {
		return nil, f.propsErr
	}
	return f.Theme.Properties()
}

type providerFunc func(name string, t theme.Type) (theme.Theme, error)

func (p providerFunc) GetTheme(name string, t theme.Type) (theme.Theme, error) { return p(name, t) }

func embeddedTheme(t *testing.T) theme.Theme {
	t.Helper()
	th, err := theme.NewFSProvider(theme.Embedded(), "").GetTheme("keycloak", theme.TypeLogin)
	require.NoError(t, err)
	return th
}

type engineFunc func(name string, attrs map[string]any, th theme.Theme) (string, error)

func (e engineFunc) Render(name string, attrs map[string]any, th theme.Theme) (string, error) {
	return e(name, attrs, th)
}

func TestToResponse_Status(t *testing.T) {
	tests := []struct {
		name    string
		failure error
		want    int
	}{
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
		{"nil failure", nil, http.StatusInternalServerError},
		{"explicit not found", idmerrors.Failure(http.StatusNotFound, "no route"), http.StatusNotFound},
		{"explicit forbidden", idmerrors.WithStatus(http.StatusForbidden, errors.New("denied")), http.StatusForbidden},
		{"explicit unavailable", idmerrors.Failure(http.StatusServiceUnavailable, ""), http.StatusServiceUnavailable},
		{"coded conflict", idmerrors.AlreadyExists("realm", "foo"), http.StatusConflict},
		{"coded client not found", idmerrors.New(idmerrors.ErrCodeClientNotFound, "x"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			h := f.handler()

			api := h.ToResponse(context.Background(), nil, tt.failure, apiRequest("/auth/realms/foo/clients"))
			assert.Equal(t, tt.want, api.Status)
			assert.Empty(t, api.Body)
			assert.Empty(t, api.ContentType)

			page := h.ToResponse(context.Background(), nil, tt.failure, htmlRequest("/auth/realms/foo/clients"))
			assert.Equal(t, tt.want, page.Status)
			assert.Equal(t, ContentTypeHTML, page.ContentType)
			assert.NotEmpty(t, page.Body)
		})
	}
}

func TestToResponse_ShortCircuitPreservesEveryStatus(t *testing.T) {
	f := newFixture()
	failing := providerFunc(func(string, theme.Type) (theme.Theme, error) {
		t.Fatal("theme must not be resolved for API clients")
		return nil, nil
	})
	h := NewHandler(realm.NewResolver(f.repo, ""), failing, theme.NewHTMLEngine(false))

	for status := 100; status <= 599; status++ {
		resp, ec := h.Translate(context.Background(), nil, idmerrors.Failure(status, ""), Request{Path: "/auth/admin/console"})
		require.Equal(t, status, resp.Status)
		require.Empty(t, resp.Body)
		require.Equal(t, StateShortCircuitDone, ec.State)
	}
}

func TestToResponse_MessageSelection(t *testing.T) {
	f := newFixture()
	h := f.handler()

	notFound, ec := h.Translate(context.Background(), nil, idmerrors.Failure(http.StatusNotFound, ""), htmlRequest("/auth/realms/foo/x"))
	require.Equal(t, StateDone, ec.State)
	assert.Equal(t, "Page not found", ec.Attributes[AttrMessage].(*MessageBean).Summary)
	assert.True(t, ec.Attributes[AttrMessage].(*MessageBean).IsError())
	assert.Contains(t, notFound.Body, "Page not found")

	for _, status := range []int{400, 403, 500, 503} {
		resp, ec := h.Translate(context.Background(), nil, idmerrors.Failure(status, ""), htmlRequest("/auth/realms/foo/x"))
		require.Equal(t, StateDone, ec.State)
		assert.Equal(t, "An internal server error has occurred", ec.Attributes[AttrMessage].(*MessageBean).Summary)
		assert.Equal(t, status, resp.Status)
	}

	assert.Equal(t, MessagePageNotFound, MessageKey(404))
	assert.Equal(t, MessageInternalServerError, MessageKey(401))
}

func TestToResponse_Attributes(t *testing.T) {
	f := newFixture()
	h := f.handler(WithResourcesVersion("v7"))

	_, ec := h.Translate(context.Background(), nil, errors.New("boom"), htmlRequest("/auth/realms/foo/protocol"))
	require.Equal(t, StateDone, ec.State)

	assert.Equal(t, 500, ec.Attributes[AttrStatusCode])
	assert.Equal(t, "foo", ec.Attributes[AttrRealm].(*realm.Realm).Name)

	urls := ec.Attributes[AttrURL].(*URLBean)
	assert.Equal(t, "https://sso.example.com/auth/realms/foo/protocol/openid-connect/auth", urls.LoginURL)
	assert.Equal(t, "/auth/resources/v7/login/keycloak", urls.ResourcesPath)
	assert.Equal(t, "https://sso.example.com/auth/resources/v7/login/keycloak", urls.ResourcesURL)

	loc := ec.Attributes[AttrLocale].(*LocaleBean)
	assert.Equal(t, "en", loc.CurrentLanguageTag)
	assert.Equal(t, "English", loc.Current)
	require.Len(t, loc.Supported, 2)
	assert.Equal(t, "https://sso.example.com/auth?kc_locale=fr", loc.Supported[1].URL)
	assert.Equal(t, "Français", loc.Supported[1].Label)

	assert.IsType(t, &MessageFormatter{}, ec.Attributes[AttrMsg])
	props := ec.Attributes[AttrProperties].(map[string]string)
	assert.Equal(t, "css/login.css", props["styles"])
}

func TestToResponse_LocalizedPage(t *testing.T) {
	f := newFixture()
	h := f.handler()

	req := htmlRequest("/auth/realms/foo/account")
	req.Header.Set("Accept-Language", "fr-FR, fr;q=0.9")

	resp, ec := h.Translate(context.Background(), nil, idmerrors.Failure(http.StatusNotFound, ""), req)
	require.Equal(t, StateDone, ec.State)
	assert.Equal(t, language.French, ec.Locale)
	assert.Contains(t, resp.Body, "Page non trouvée")
	assert.Contains(t, resp.Body, `hreflang="fr"`)
	assert.Contains(t, resp.Body, "Foo Corp")
	assert.Contains(t, resp.Body, `href="/auth/resources/1/login/keycloak/css/login.css"`)

	req.Query = url.Values{"kc_locale": {"en"}}
	resp = h.ToResponse(context.Background(), nil, idmerrors.Failure(http.StatusNotFound, ""), req)
	assert.Contains(t, resp.Body, "Page not found")
}

func TestToResponse_TenantFallback(t *testing.T) {
	f := newFixture()
	h := f.handler()

	for _, path := range []string{"/auth/admin/console", "/auth/realms/unknown/account"} {
		_, ec := h.Translate(context.Background(), nil, errors.New("boom"), htmlRequest(path))
		require.Equal(t, StateDone, ec.State, path)
		require.NotNil(t, ec.Realm)
		assert.Equal(t, "master", ec.Realm.Name)
		assert.Equal(t, theme.DefaultThemeName, ec.Theme.Name())
	}
}

func TestToResponse_ThemeFailureDegrades(t *testing.T) {
	f := newFixture()
	f.provider = providerFunc(func(string, theme.Type) (theme.Theme, error) {
		return nil, theme.ErrThemeNotFound
	})
	h := f.handler()

	for _, failure := range []error{idmerrors.Failure(http.StatusNotFound, ""), errors.New("boom")} {
		resp, ec := h.Translate(context.Background(), nil, failure, htmlRequest("/auth/realms/foo"))
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
		assert.Empty(t, resp.Body)
		assert.Empty(t, resp.ContentType)
		assert.Equal(t, StateDegradedDone, ec.State)
		assert.Equal(t, StateTenantResolved, ec.Trace[len(ec.Trace)-2])
	}
	assert.Contains(t, f.logs.String(), "Failed to create error page")
	assert.Equal(t, []string{"500:degraded", "500:degraded"}, f.recorder.outcomes)
}

func TestToResponse_MandatoryFailuresDegrade(t *testing.T) {
	tests := []struct {
		name     string
		provider func(t *testing.T) theme.Provider
		engine   theme.TemplateEngine
		realms   RealmResolver
	}{
		{
			name: "catalog load",
			provider: func(t *testing.T) theme.Provider {
				th := &flakyTheme{Theme: embeddedTheme(t), failFrom: 1}
				return providerFunc(func(string, theme.Type) (theme.Theme, error) { return th, nil })
			},
		},
		{
			name: "missing message key",
			provider: func(t *testing.T) theme.Provider {
				bare := theme.NewFSProvider(mapFS(map[string]string{"bare/login/error.ftl": "{{.message.Summary}}"}), "bare")
				return providerFunc(func(string, theme.Type) (theme.Theme, error) {
					return bare.GetTheme("", theme.TypeLogin)
				})
			},
		},
		{
			name: "template execution",
			engine: engineFunc(func(string, map[string]any, theme.Theme) (string, error) {
				return "", errors.New("template: error.ftl: undefined variable")
			}),
		},
		{
			name: "template panic",
			engine: engineFunc(func(string, map[string]any, theme.Theme) (string, error) {
				panic("nil map")
			}),
		},
		{
			name: "realm store failure",
			realms: realmResolverFunc(func(context.Context, string) (*realm.Realm, error) {
				return nil, errors.New("connection refused")
			}),
		},
		{
			name: "missing admin realm",
			realms: realm.NewResolver(realm.NewInMemoryRepository(), "master"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			var provider theme.Provider = f.provider
			if tt.provider != nil {
				provider = tt.provider(t)
			}
			var engine theme.TemplateEngine = theme.NewHTMLEngine(false)
			if tt.engine != nil {
				engine = tt.engine
			}
			var realms RealmResolver = realm.NewResolver(f.repo, "")
			if tt.realms != nil {
				realms = tt.realms
			}

			h := NewHandler(realms, provider, engine, WithLogger(slog.New(slog.NewTextHandler(f.logs, nil))))
			uow := &txn.LocalUnit{}
			resp, ec := h.Translate(context.Background(), uow, idmerrors.Failure(http.StatusNotFound, ""), htmlRequest("/auth/realms/foo"))

			assert.Equal(t, Response{Status: http.StatusInternalServerError}, resp)
			assert.Equal(t, StateDegradedDone, ec.State)
			assert.True(t, uow.IsRollbackOnly())
			// the original 404 is logged because the final status is 5xx
			assert.Contains(t, f.logs.String(), "Uncaught server error")
		})
	}
}

func TestToResponse_OptionalAttributeFailures(t *testing.T) {
	t.Run("formatter", func(t *testing.T) {
		f := newFixture()
		th := &flakyTheme{Theme: embeddedTheme(t), failFrom: 2}
		f.provider = providerFunc(func(string, theme.Type) (theme.Theme, error) { return th, nil })
		h := f.handler()

		resp, ec := h.Translate(context.Background(), nil, idmerrors.Failure(http.StatusNotFound, ""), htmlRequest("/auth/realms/foo"))
		require.Equal(t, StateDone, ec.State)
		assert.Equal(t, http.StatusNotFound, resp.Status)
		assert.NotContains(t, ec.Attributes, AttrMsg)
		assert.Contains(t, ec.Attributes, AttrProperties)
		assert.Contains(t, resp.Body, "Page not found")
		assert.Contains(t, f.logs.String(), "Failed to build message formatter")
	})

	t.Run("properties", func(t *testing.T) {
		f := newFixture()
		th := &flakyTheme{Theme: embeddedTheme(t), propsErr: errors.New("unreadable")}
		f.provider = providerFunc(func(string, theme.Type) (theme.Theme, error) { return th, nil })
		h := f.handler()

		resp, ec := h.Translate(context.Background(), nil, errors.New("boom"), htmlRequest("/auth/realms/foo"))
		require.Equal(t, StateDone, ec.State)
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
		assert.NotContains(t, ec.Attributes, AttrProperties)
		assert.Contains(t, ec.Attributes, AttrMsg)
		assert.NotEmpty(t, resp.Body)
		assert.Contains(t, f.logs.String(), "Failed to load theme properties")
	})
}

func TestToResponse_Idempotent(t *testing.T) {
	f := newFixture()
	h := f.handler()
	failure := idmerrors.Failure(http.StatusNotFound, "")

	first := h.ToResponse(context.Background(), nil, failure, htmlRequest("/auth/realms/foo/bars/baz"))
	second := h.ToResponse(context.Background(), nil, failure, htmlRequest("/auth/realms/foo/bars/baz"))
	assert.Equal(t, first, second)
}

func TestToResponse_GuardAndStates(t *testing.T) {
	f := newFixture()
	h := f.handler()

	t.Run("short circuit", func(t *testing.T) {
		uow := &txn.LocalUnit{}
		_, ec := h.Translate(context.Background(), uow, errors.New("boom"), apiRequest("/auth/realms/foo"))
		assert.True(t, uow.IsRollbackOnly())
		assert.Equal(t, []State{
			StateReceived, StateRolledBack, StateStatusDerived, StateNegotiated, StateShortCircuitDone,
		}, ec.Trace)
		assert.True(t, ec.State.Terminal())
	})

	t.Run("rendered", func(t *testing.T) {
		uow := &txn.LocalUnit{}
		_, ec := h.Translate(context.Background(), uow, errors.New("boom"), htmlRequest("/auth/realms/foo"))
		assert.True(t, uow.IsRollbackOnly())
		assert.Equal(t, []State{
			StateReceived, StateRolledBack, StateStatusDerived, StateNegotiated,
			StateTenantResolved, StateThemeResolved, StateLocaleResolved, StateCatalogLoaded,
			StateRendered, StateDone,
		}, ec.Trace)
	})

	t.Run("already rolled back", func(t *testing.T) {
		uow := &txn.LocalUnit{}
		uow.SetRollbackOnly()
		resp := h.ToResponse(context.Background(), uow, errors.New("boom"), apiRequest("/"))
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
		assert.True(t, uow.IsRollbackOnly())
	})
}

func TestToResponse_Logging(t *testing.T) {
	f := newFixture()
	h := f.handler()

	h.ToResponse(context.Background(), nil, idmerrors.Failure(http.StatusNotFound, ""), apiRequest("/auth/realms/foo"))
	assert.NotContains(t, f.logs.String(), "Uncaught server error")

	h.ToResponse(context.Background(), nil, errors.New("disk on fire"), apiRequest("/auth/realms/foo"))
	assert.Contains(t, f.logs.String(), "Uncaught server error")
	assert.Contains(t, f.logs.String(), "disk on fire")
	assert.Equal(t, 1, strings.Count(f.logs.String(), "Uncaught server error"))

	assert.Equal(t, []string{"404:short_circuit", "500:short_circuit"}, f.recorder.outcomes)
}

func TestResponse_WriteTo(t *testing.T) {
	rec := newRecorder()
	require.NoError(t, Response{Status: 404, ContentType: ContentTypeHTML, Body: "<p>gone</p>"}.WriteTo(rec))
	assert.Equal(t, 404, rec.Code)
	assert.Equal(t, ContentTypeHTML, rec.Header().Get("Content-Type"))
	assert.Equal(t, "<p>gone</p>", rec.Body.String())

	rec = newRecorder()
	require.NoError(t, Response{Status: 503}.WriteTo(rec))
	assert.Equal(t, 503, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Type"))
	assert.Equal(t, "0", rec.Header().Get("Content-Length"))
	assert.Zero(t, rec.Body.Len())
}

func TestResponse_WriteTo_InformationalStatus(t *testing.T) {
	for _, status := range []int{100, 101, 103, 199} {
		rec := newRecorder()
		resp := Response{Status: status}
		require.NoError(t, resp.WriteTo(rec))
		assert.Equal(t, http.StatusInternalServerError, rec.Code, "status %d", status)
		assert.Equal(t, status, resp.Status)
	}

	rec := newRecorder()
	require.NoError(t, Response{Status: http.StatusOK}.WriteTo(rec))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewHandler_NilOptionsKeepDefaults(t *testing.T) {
	f := newFixture()
	panicking := realmResolverFunc(func(context.Context, string) (*realm.Realm, error) {
		panic("resolver exploded")
	})
	h := NewHandler(panicking, f.provider, theme.NewHTMLEngine(false),
		WithLogger(nil), WithRecorder(nil), WithLocaleResolver(nil))

	var resp Response
	assert.NotPanics(t, func() {
		resp = h.ToResponse(context.Background(), &txn.LocalUnit{}, errors.New("boom"), htmlRequest("/auth/realms/foo/x"))
	})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Empty(t, resp.Body)
}

type realmResolverFunc func(ctx context.Context, path string) (*realm.Realm, error)

func (f realmResolverFunc) Resolve(ctx context.Context, path string) (*realm.Realm, error) {
	return f(ctx, path)
}
