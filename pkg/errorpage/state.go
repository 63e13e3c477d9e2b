package errorpage

import (
	"github.com/tendant/realm-console/pkg/realm"
	"github.com/tendant/realm-console/pkg/theme"
	"golang.org/x/text/language"
)

// State is a step of the translation pipeline.
type State string

const (
	StateReceived         State = "RECEIVED"
	StateRolledBack       State = "ROLLED_BACK"
	StateStatusDerived    State = "STATUS_DERIVED"
	StateNegotiated       State = "NEGOTIATED"
	StateShortCircuitDone State = "SHORT_CIRCUIT_DONE"
	StateTenantResolved   State = "TENANT_RESOLVED"
	StateThemeResolved    State = "THEME_RESOLVED"
	StateLocaleResolved   State = "LOCALE_RESOLVED"
	StateCatalogLoaded    State = "CATALOG_LOADED"
	StateRendered         State = "RENDERED"
	StateDone             State = "DONE"
	StateDegradedDone     State = "DEGRADED_DONE"
)

// Terminal reports whether s ends the pipeline.
func (s State) Terminal() bool {
	return s == StateDone || s == StateShortCircuitDone || s == StateDegradedDone
}

// ErrorContext holds everything resolved while translating one failure.
type ErrorContext struct {
	State      State
	Trace      []State
	Status     int
	Cause      error
	Realm      *realm.Realm
	Theme      theme.Theme
	Locale     language.Tag
	Attributes map[string]any
}

func newErrorContext(cause error) *ErrorContext {
	ec := &ErrorContext{Cause: cause}
	ec.advance(StateReceived)
	return ec
}

func (ec *ErrorContext) advance(s State) {
	ec.State = s
	ec.Trace = append(ec.Trace, s)
}
