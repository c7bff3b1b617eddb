package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukaforge/silo/pkg/dberr"
)

// Guard is the Transaction Guard: scoped acquisition of the store's
// single top-level transaction. Begin opens it; on scope exit, if
// neither Commit nor Rollback has run, the caller's deferred Rollback
// call closes it. There is no finalizer-driven cleanup, since Go has no
// destructors — callers are expected to `defer g.Rollback()` immediately
// after a successful Begin, mirroring an RAII guard's unwind path.
type Guard struct {
	store     *Store
	tx        *sql.Tx
	done      bool
	committed bool
}

// Begin opens the store's top-level transaction. Nested Begin on a store
// that already has one active is an error; use Savepoint instead.
func Begin(s *Store) (*Guard, error) {
	if s.tx != nil {
		return nil, dberr.New(dberr.InternalError, "a top-level transaction is already open on this store")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, dberr.Newf(dberr.SqlError, s.path, "beginning transaction: %v", err)
	}
	s.tx = tx
	return &Guard{store: s, tx: tx}, nil
}

// Commit commits the transaction. Calling Commit twice, or Commit after
// Rollback, raises InternalError.
func (g *Guard) Commit() error {
	if g.done {
		return dberr.New(dberr.InternalError, "transaction guard already finalized")
	}
	g.done = true
	g.committed = true
	g.store.tx = nil
	if err := g.tx.Commit(); err != nil {
		return dberr.Newf(dberr.SqlError, g.store.path, "committing transaction: %v", err)
	}
	return nil
}

// Rollback rolls the transaction back. Calling Rollback after Commit
// raises InternalError; calling Rollback a second time is a harmless
// no-op. A deferred Rollback after an explicit Commit changes nothing; its
// InternalError result is simply discarded by the defer.
func (g *Guard) Rollback() error {
	if g.done {
		if g.committed {
			return dberr.New(dberr.InternalError, "transaction guard already committed")
		}
		return nil
	}
	g.done = true
	g.store.tx = nil
	if err := g.tx.Rollback(); err != nil {
		return dberr.Newf(dberr.SqlError, g.store.path, "rolling back transaction: %v", err)
	}
	return nil
}

// Savepoint is the nested analogue of Guard: a named SAVEPOINT inside the
// store's active transaction. Release commits the savepoint into its
// parent; RollbackTo undoes only the changes made since the savepoint was
// taken.
type Savepoint struct {
	store *Store
	name  string
	done  bool
}

// NewSavepoint opens a named savepoint inside the store's active
// transaction. A name is generated from a uuid if the caller passes "".
func NewSavepoint(s *Store, name string) (*Savepoint, error) {
	if s.tx == nil {
		return nil, dberr.New(dberr.InternalError, "savepoint requires an active transaction")
	}
	if name == "" {
		name = "sp_" + uuidToken()
	}
	if _, err := s.tx.Exec(fmt.Sprintf("SAVEPOINT %s", quoteSavepointName(name))); err != nil {
		return nil, dberr.Newf(dberr.SqlError, s.path, "opening savepoint %q: %v", name, err)
	}
	return &Savepoint{store: s, name: name}, nil
}

// Release commits the savepoint into its parent transaction.
func (sp *Savepoint) Release() error {
	if sp.done {
		return dberr.New(dberr.InternalError, "savepoint already finalized")
	}
	sp.done = true
	if _, err := sp.store.tx.Exec(fmt.Sprintf("RELEASE SAVEPOINT %s", quoteSavepointName(sp.name))); err != nil {
		return dberr.Newf(dberr.SqlError, sp.store.path, "releasing savepoint %q: %v", sp.name, err)
	}
	return nil
}

// RollbackTo undoes every change made since the savepoint was taken,
// without releasing it; the caller may still Release afterward, or call
// RollbackTo again. Calling RollbackTo after Release raises InternalError,
// since the savepoint no longer exists by then.
func (sp *Savepoint) RollbackTo() error {
	if sp.done {
		return dberr.New(dberr.InternalError, "savepoint already released")
	}
	if _, err := sp.store.tx.Exec(fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", quoteSavepointName(sp.name))); err != nil {
		return dberr.Newf(dberr.SqlError, sp.store.path, "rolling back to savepoint %q: %v", sp.name, err)
	}
	return nil
}

func quoteSavepointName(name string) string {
	return fmt.Sprintf(`"%s"`, name)
}

func uuidToken() string {
	return uuid.New().String()
}

// withImplicitTx runs fn against the store's active transaction if one is
// open, or opens a one-statement transaction for the duration of fn,
// committing on success and rolling back on error. Every mutation path
// not already inside a transaction goes through this implicit
// one-statement transaction.
func (s *Store) withImplicitTx(fn func() error) error {
	if s.tx != nil {
		return fn()
	}
	g, err := Begin(s)
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		_ = g.Rollback()
		return err
	}
	return g.Commit()
}
