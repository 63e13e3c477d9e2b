package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatus     int
		wantClassified bool
	}{
		{"nil", nil, http.StatusInternalServerError, false},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError, false},
		{"explicit 404", Failure(http.StatusNotFound, "no route"), http.StatusNotFound, true},
		{"explicit 403", WithStatus(http.StatusForbidden, stderrors.New("denied")), http.StatusForbidden, true},
		{"explicit 418", Failure(http.StatusTeapot, ""), http.StatusTeapot, true},
		{"explicit 503", Failure(http.StatusServiceUnavailable, "down"), http.StatusServiceUnavailable, true},
		{"coded not found", NotFound("client", "app"), http.StatusNotFound, true},
		{"coded realm not found", New(ErrCodeRealmNotFound, "realm missing"), http.StatusNotFound, true},
		{"coded conflict", AlreadyExists("realm", "demo"), http.StatusConflict, true},
		{"coded internal", InternalWrap(stderrors.New("db"), "save"), http.StatusInternalServerError, true},
		{"wrapped status", fmt.Errorf("handler: %w", Failure(http.StatusMethodNotAllowed, "")), http.StatusMethodNotAllowed, true},
		{"out of range low", Failure(42, "bad"), http.StatusInternalServerError, true},
		{"out of range high", Failure(600, "bad"), http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.err)
			assert.Equal(t, tt.wantStatus, c.Status)
			assert.Equal(t, tt.wantClassified, c.Classified)
			assert.Equal(t, tt.err, c.Cause)
			assert.Equal(t, tt.wantStatus, StatusCode(tt.err))
		})
	}
}

func TestClassify_StatusErrorWinsOverCode(t *testing.T) {
	err := WithStatus(http.StatusForbidden, NotFound("realm", "demo"))
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
}

func TestStatusError_Error(t *testing.T) {
	assert.Equal(t, "http 404: Not Found", Failure(http.StatusNotFound, "").Error())
	assert.Equal(t, "http 404: no route", Failure(http.StatusNotFound, "no route").Error())

	cause := stderrors.New("denied")
	err := WithStatus(http.StatusForbidden, cause)
	assert.Equal(t, "http 403: Forbidden: denied", err.Error())
	assert.True(t, Is(err, cause))
}

func TestError_Wrapping(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrapf(cause, ErrCodeInternal, "failed to save %s", "realms.json")
	require.NotNil(t, err)

	assert.Equal(t, "[INTERNAL_ERROR] failed to save realms.json: disk full", err.Error())
	assert.True(t, Is(err, cause))
	assert.True(t, IsCode(err, ErrCodeInternal))
	assert.Equal(t, ErrCodeInternal, GetCode(fmt.Errorf("outer: %w", err)))
	assert.Equal(t, ErrCodeInternal, GetCode(cause))

	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))

	var coded *Error
	require.True(t, As(fmt.Errorf("outer: %w", err), &coded))
	assert.Equal(t, "failed to save realms.json", coded.Message)
}

func TestError_WithDetail(t *testing.T) {
	err := InvalidInput("clientId", "must not be empty").WithDetail("realm", "demo")
	assert.Equal(t, "demo", err.Details["realm"])
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatusCode())
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := map[ErrorCode]int{
		ErrCodeInvalidInput:       http.StatusBadRequest,
		ErrCodeDirectGrantsOnly:   http.StatusBadRequest,
		ErrCodeSessionExpired:     http.StatusUnauthorized,
		ErrCodeRealmDisabled:      http.StatusForbidden,
		ErrCodeClientNotFound:     http.StatusNotFound,
		ErrCodeMethodNotAllowed:   http.StatusMethodNotAllowed,
		ErrCodeAlreadyExists:      http.StatusConflict,
		ErrCodeRateLimitExceeded:  http.StatusTooManyRequests,
		ErrCodeTimeout:            http.StatusServiceUnavailable,
		ErrCodeThemeNotFound:      http.StatusInternalServerError,
		ErrCodeClientRealmMissing: http.StatusInternalServerError,
		ErrorCode("UNKNOWN"):      http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, MapErrorCodeToHTTPStatus(code), string(code))
	}
}

func TestIsServerError(t *testing.T) {
	assert.True(t, IsServerError(500))
	assert.True(t, IsServerError(599))
	assert.False(t, IsServerError(404))
	assert.False(t, IsServerError(600))
}
