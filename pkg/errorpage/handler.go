package errorpage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/text/language"

	"github.com/tendant/realm-console/pkg/errors"
	"github.com/tendant/realm-console/pkg/locale"
	"github.com/tendant/realm-console/pkg/mediatype"
	"github.com/tendant/realm-console/pkg/realm"
	"github.com/tendant/realm-console/pkg/theme"
	"github.com/tendant/realm-console/pkg/txn"
)

const defaultResourcesVersion = "1"

// Outcome labels recorded per translated failure.
const (
	OutcomeShortCircuit = "short_circuit"
	OutcomeRendered     = "rendered"
	OutcomeDegraded     = "degraded"
)

var ErrMessageNotFound = errors.New(errors.ErrCodeInternal, "error message missing from catalog")

// RealmResolver finds the realm a request path belongs to.
type RealmResolver interface {
	Resolve(ctx context.Context, path string) (*realm.Realm, error)
}

// LocaleResolver picks the locale of a page.
type LocaleResolver interface {
	Resolve(hints locale.Hints, r *realm.Realm, override *language.Tag) language.Tag
}

// Recorder receives outcome metrics.
type Recorder interface {
	ObserveErrorResponse(status int, outcome string)
	ObserveRender(d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveErrorResponse(int, string) {}
func (noopRecorder) ObserveRender(time.Duration)      {}

// Handler translates failures into responses. It keeps no per-request
// state and is safe for concurrent use.
type Handler struct {
	realms           RealmResolver
	themes           theme.Provider
	engine           theme.TemplateEngine
	locales          LocaleResolver
	logger           *slog.Logger
	recorder         Recorder
	basePath         string
	resourcesVersion string
}

// Option is a function that configures a Handler
type Option func(*Handler)

// WithLocaleResolver replaces the default locale resolver
func WithLocaleResolver(resolver LocaleResolver) Option {
	return func(h *Handler) {
		if resolver != nil {
			h.locales = resolver
		}
	}
}

// WithLogger sets the logger. nil keeps the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder. nil keeps the no-op recorder.
func WithRecorder(recorder Recorder) Option {
	return func(h *Handler) {
		if recorder != nil {
			h.recorder = recorder
		}
	}
}

// WithBasePath sets the path prefix the server is mounted under, used to
// build the base URI of pages.
func WithBasePath(basePath string) Option {
	return func(h *Handler) {
		h.basePath = basePath
	}
}

// WithResourcesVersion sets the version segment of theme resource URLs
func WithResourcesVersion(version string) Option {
	return func(h *Handler) {
		h.resourcesVersion = version
	}
}

// NewHandler creates a handler
func NewHandler(realms RealmResolver, themes theme.Provider, engine theme.TemplateEngine, opts ...Option) *Handler {
	h := &Handler{
		realms:           realms,
		themes:           themes,
		engine:           engine,
		locales:          locale.NewResolver(),
		logger:           slog.Default(),
		recorder:         noopRecorder{},
		resourcesVersion: defaultResourcesVersion,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ToResponse translates failure into a response. It never panics.
func (h *Handler) ToResponse(ctx context.Context, uow txn.UnitOfWork, failure error, req Request) Response {
	resp, _ := h.Translate(ctx, uow, failure, req)
	return resp
}

// Translate is ToResponse that also returns the pipeline context.
func (h *Handler) Translate(ctx context.Context, uow txn.UnitOfWork, failure error, req Request) (resp Response, ec *ErrorContext) {
	ec = newErrorContext(failure)
	loggedCause := false

	defer func() {
		if rec := recover(); rec != nil {
			resp = h.degrade(ec, req, fmt.Errorf("panic: %v", rec), loggedCause)
		}
	}()

	txn.Guard(uow)
	ec.advance(StateRolledBack)

	classification := errors.Classify(failure)
	ec.Status = classification.Status
	ec.advance(StateStatusDerived)

	if errors.IsServerError(ec.Status) {
		h.logger.Error("Uncaught server error", "error", failure, "status", ec.Status, "path", req.Path)
		loggedCause = true
	}

	wantsHTML := mediatype.IsHTMLRequest(req.Header)
	ec.advance(StateNegotiated)

	if !wantsHTML {
		ec.advance(StateShortCircuitDone)
		h.recorder.ObserveErrorResponse(ec.Status, OutcomeShortCircuit)
		return Response{Status: ec.Status}, ec
	}

	start := time.Now()
	body, err := h.render(ctx, ec, req)
	if err != nil {
		return h.degrade(ec, req, err, loggedCause), ec
	}
	h.recorder.ObserveRender(time.Since(start))

	ec.advance(StateDone)
	h.recorder.ObserveErrorResponse(ec.Status, OutcomeRendered)
	return Response{Status: ec.Status, ContentType: ContentTypeHTML, Body: body}, ec
}

func (h *Handler) degrade(ec *ErrorContext, req Request, err error, loggedCause bool) Response {
	h.logger.Error("Failed to create error page", "error", err, "state", ec.State, "status", ec.Status, "path", req.Path)
	if !loggedCause {
		h.logger.Error("Uncaught server error", "error", ec.Cause, "status", ec.Status, "path", req.Path)
	}
	ec.advance(StateDegradedDone)
	h.recorder.ObserveErrorResponse(http.StatusInternalServerError, OutcomeDegraded)
	return Response{Status: http.StatusInternalServerError}
}

func (h *Handler) render(ctx context.Context, ec *ErrorContext, req Request) (body string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	r, err := h.realms.Resolve(ctx, req.Path)
	if err != nil {
		return "", fmt.Errorf("resolve realm: %w", err)
	}
	ec.Realm = r
	ec.advance(StateTenantResolved)

	th, err := h.themes.GetTheme(r.LoginTheme, theme.TypeLogin)
	if err != nil {
		return "", fmt.Errorf("resolve theme %q: %w", r.LoginTheme, err)
	}
	ec.Theme = th
	ec.advance(StateThemeResolved)

	ec.Locale = h.locales.Resolve(locale.HintsFrom(req.Header, req.Query), r, nil)
	ec.advance(StateLocaleResolved)

	messages, err := th.Messages(ec.Locale)
	if err != nil {
		return "", fmt.Errorf("load messages for %s: %w", ec.Locale, err)
	}
	ec.advance(StateCatalogLoaded)

	attrs, err := h.attributes(ec, req, messages)
	if err != nil {
		return "", err
	}
	ec.Attributes = attrs

	body, err = h.engine.Render(TemplateName, attrs, th)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", TemplateName, err)
	}
	ec.advance(StateRendered)
	return body, nil
}

func (h *Handler) attributes(ec *ErrorContext, req Request, messages map[string]string) (map[string]any, error) {
	base := req.BaseURI
	if base == nil {
		base = &url.URL{Path: h.basePath}
	}

	key := MessageKey(ec.Status)
	summary, ok := messages[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, key)
	}

	attrs := map[string]any{
		AttrStatusCode: ec.Status,
		AttrRealm:      ec.Realm,
		AttrURL:        newURLBean(ec.Realm, ec.Theme, base, h.resourcesVersion),
		AttrLocale:     newLocaleBean(ec.Realm, ec.Locale, base, messages),
		AttrMessage:    &MessageBean{Summary: summary, Type: MessageTypeError},
	}

	if formatter, err := h.formatter(ec); err != nil {
		h.logger.Warn("Failed to build message formatter", "error", err, "theme", ec.Theme.Name(), "locale", ec.Locale.String())
	} else {
		attrs[AttrMsg] = formatter
	}

	if props, err := ec.Theme.Properties(); err != nil {
		h.logger.Warn("Failed to load theme properties", "error", err, "theme", ec.Theme.Name())
	} else {
		attrs[AttrProperties] = props
	}

	return attrs, nil
}

func (h *Handler) formatter(ec *ErrorContext) (*MessageFormatter, error) {
	messages, err := ec.Theme.Messages(ec.Locale)
	if err != nil {
		return nil, err
	}
	return NewMessageFormatter(ec.Locale, messages)
}
