// Package txn models the per-request unit of work that failures mark
// rollback-only.
package txn

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// UnitOfWork is the in-flight unit of work of a single request.
type UnitOfWork interface {
	SetRollbackOnly()
	IsRollbackOnly() bool
}

// Unit is a UnitOfWork that can be ended. End commits unless the unit was
// marked rollback-only.
type Unit interface {
	UnitOfWork
	End(ctx context.Context) error
}

// Beginner opens units of work.
type Beginner interface {
	Begin(ctx context.Context) (Unit, error)
}

// Guard marks uow rollback-only. A nil unit of work is a no-op and repeated
// calls have no further effect.
func Guard(uow UnitOfWork) {
	if uow == nil {
		return
	}
	uow.SetRollbackOnly()
}

// LocalUnit is the unit of work used with non-transactional stores
// (in-memory and file). It only records the rollback flag.
type LocalUnit struct {
	rollbackOnly atomic.Bool
}

func (u *LocalUnit) SetRollbackOnly()     { u.rollbackOnly.Store(true) }
func (u *LocalUnit) IsRollbackOnly() bool { return u.rollbackOnly.Load() }
func (u *LocalUnit) End(context.Context) error {
	return nil
}

// LocalBeginner hands out LocalUnits.
type LocalBeginner struct{}

func (LocalBeginner) Begin(context.Context) (Unit, error) {
	return &LocalUnit{}, nil
}

// Transaction is a Unit backed by a postgres transaction.
type Transaction struct {
	tx           pgx.Tx
	rollbackOnly atomic.Bool

	endOnce sync.Once
	ended   atomic.Bool
	endErr  error
}

// NewTransaction wraps an open pgx transaction.
func NewTransaction(tx pgx.Tx) *Transaction {
	return &Transaction{tx: tx}
}

// Tx returns the underlying transaction for repositories that take part in it.
func (t *Transaction) Tx() pgx.Tx { return t.tx }

func (t *Transaction) SetRollbackOnly()     { t.rollbackOnly.Store(true) }
func (t *Transaction) IsRollbackOnly() bool { return t.rollbackOnly.Load() }

// End commits the transaction, or rolls it back when it was marked
// rollback-only. Only the first call has an effect.
func (t *Transaction) End(ctx context.Context) error {
	t.endOnce.Do(func() {
		defer t.ended.Store(true)
		if t.IsRollbackOnly() {
			if err := t.tx.Rollback(ctx); err != nil {
				t.endErr = fmt.Errorf("rollback transaction: %w", err)
			}
			return
		}
		if err := t.tx.Commit(ctx); err != nil {
			t.endErr = fmt.Errorf("commit transaction: %w", err)
		}
	})
	return t.endErr
}

// DBTX is the query surface shared by pools, connections and transactions.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Querier returns the handle queries made under ctx run on: the open
// transaction of the context's unit of work, or fallback when there is none.
// A transaction already marked rollback-only is ended first and fallback is
// returned, so reads made while answering a failure see committed state.
func Querier(ctx context.Context, fallback DBTX) DBTX {
	t, ok := FromContext(ctx).(*Transaction)
	if !ok || t == nil {
		return fallback
	}
	if t.IsRollbackOnly() {
		// the error is kept and reported by whoever ends the unit
		_ = t.End(ctx)
	}
	if t.ended.Load() {
		return fallback
	}
	return t.tx
}

// TxStarter is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PgxBeginner opens a postgres transaction per unit of work.
type PgxBeginner struct {
	DB TxStarter
}

func NewPgxBeginner(db TxStarter) *PgxBeginner {
	return &PgxBeginner{DB: db}
}

func (b *PgxBeginner) Begin(ctx context.Context) (Unit, error) {
	tx, err := b.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return NewTransaction(tx), nil
}

type contextKey struct{}

// WithUnit returns a copy of ctx carrying u.
func WithUnit(ctx context.Context, u UnitOfWork) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the unit of work stored in ctx, or nil.
func FromContext(ctx context.Context) UnitOfWork {
	u, _ := ctx.Value(contextKey{}).(UnitOfWork)
	return u
}
