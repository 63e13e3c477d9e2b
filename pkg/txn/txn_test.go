package txn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
	commitErr error
}

func (f *fakeTx) Commit(context.Context) error {
	f.commits++
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rollbacks++
	return nil
}

type fakeStarter struct {
	tx  *fakeTx
	err error
}

func (s *fakeStarter) Begin(context.Context) (pgx.Tx, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tx, nil
}

func TestGuard(t *testing.T) {
	t.Run("nil unit is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() { Guard(nil) })
	})

	t.Run("idempotent", func(t *testing.T) {
		u := &LocalUnit{}
		assert.False(t, u.IsRollbackOnly())
		Guard(u)
		Guard(u)
		assert.True(t, u.IsRollbackOnly())
		require.NoError(t, u.End(context.Background()))
	})
}

func TestTransaction_End(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when not marked", func(t *testing.T) {
		tx := &fakeTx{}
		unit := NewTransaction(tx)
		require.NoError(t, unit.End(ctx))
		require.NoError(t, unit.End(ctx))
		assert.Equal(t, 1, tx.commits)
		assert.Equal(t, 0, tx.rollbacks)
	})

	t.Run("rolls back when guarded", func(t *testing.T) {
		tx := &fakeTx{}
		unit := NewTransaction(tx)
		Guard(unit)
		require.NoError(t, unit.End(ctx))
		assert.Equal(t, 0, tx.commits)
		assert.Equal(t, 1, tx.rollbacks)
	})

	t.Run("commit failure is reported", func(t *testing.T) {
		tx := &fakeTx{commitErr: errors.New("serialization failure")}
		err := NewTransaction(tx).End(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "serialization failure")
	})
}

func TestPgxBeginner(t *testing.T) {
	tx := &fakeTx{}
	unit, err := NewPgxBeginner(&fakeStarter{tx: tx}).Begin(context.Background())
	require.NoError(t, err)
	assert.Same(t, tx, unit.(*Transaction).Tx())

	_, err = NewPgxBeginner(&fakeStarter{err: errors.New("pool closed")}).Begin(context.Background())
	assert.ErrorContains(t, err, "pool closed")
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	u := &LocalUnit{}
	assert.Same(t, u, FromContext(WithUnit(context.Background(), u)))
}

func TestQuerier(t *testing.T) {
	ctx := context.Background()
	pool := &fakeTx{}

	t.Run("no unit uses fallback", func(t *testing.T) {
		assert.Same(t, pool, Querier(ctx, pool))
	})

	t.Run("local unit uses fallback", func(t *testing.T) {
		assert.Same(t, pool, Querier(WithUnit(ctx, &LocalUnit{}), pool))
	})

	t.Run("open transaction is used", func(t *testing.T) {
		tx := &fakeTx{}
		unit := NewTransaction(tx)
		assert.Same(t, tx, Querier(WithUnit(ctx, unit), pool))
		assert.Equal(t, 0, tx.rollbacks)
	})

	t.Run("rollback-only transaction is rolled back early", func(t *testing.T) {
		tx := &fakeTx{}
		unit := NewTransaction(tx)
		Guard(unit)
		assert.Same(t, pool, Querier(WithUnit(ctx, unit), pool))
		assert.Same(t, pool, Querier(WithUnit(ctx, unit), pool))
		assert.Equal(t, 1, tx.rollbacks)

		require.NoError(t, unit.End(ctx))
		assert.Equal(t, 1, tx.rollbacks)
		assert.Equal(t, 0, tx.commits)
	})

	t.Run("ended transaction uses fallback", func(t *testing.T) {
		tx := &fakeTx{}
		unit := NewTransaction(tx)
		require.NoError(t, unit.End(ctx))
		assert.Same(t, pool, Querier(WithUnit(ctx, unit), pool))
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("handler sees the unit and commit happens", func(t *testing.T) {
		tx := &fakeTx{}
		var seen UnitOfWork
		h := Middleware(NewPgxBeginner(&fakeStarter{tx: tx}), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = FromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/realms/demo/clients", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, 1, tx.commits)
	})

	t.Run("guarded unit rolls back", func(t *testing.T) {
		tx := &fakeTx{}
		h := Middleware(NewPgxBeginner(&fakeStarter{tx: tx}), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Guard(FromContext(r.Context()))
			w.WriteHeader(http.StatusInternalServerError)
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, 1, tx.rollbacks)
		assert.Equal(t, 0, tx.commits)
	})

	t.Run("panic rolls back and propagates", func(t *testing.T) {
		tx := &fakeTx{}
		h := Middleware(NewPgxBeginner(&fakeStarter{tx: tx}), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		assert.Panics(t, func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
		assert.Equal(t, 1, tx.rollbacks)
	})

	t.Run("begin failure answers 500", func(t *testing.T) {
		called := false
		h := Middleware(NewPgxBeginner(&fakeStarter{err: errors.New("down")}), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.False(t, called)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
