package store

import (
	"fmt"

	"github.com/dukaforge/silo/pkg/dberr"
	"github.com/dukaforge/silo/pkg/element"
	"github.com/dukaforge/silo/pkg/identifier"
	"github.com/dukaforge/silo/pkg/typecheck"
	"github.com/dukaforge/silo/pkg/value"
)

// BatchOptions configures CreateElements and UpdateElements.
type BatchOptions struct {
	// StopOnError aborts on the first failure and rolls back the
	// transaction that failure occurred in (the whole batch when
	// SingleTransaction is set, otherwise only the current chunk). When
	// false, every item is attempted and the failures are reported in
	// BatchResult instead.
	StopOnError bool
	// ChunkSize splits a large batch into transactions of this size. Zero
	// means no chunking: everything runs in one transaction.
	ChunkSize int
	// SingleTransaction, when true, runs every chunk inside one shared
	// transaction instead of one transaction per chunk.
	SingleTransaction bool
}

// DefaultBatchOptions returns the conservative defaults: stop on the
// first failure, chunk at 1000 items, and share one transaction across
// chunks.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{StopOnError: true, ChunkSize: 1000, SingleTransaction: true}
}

// BatchResult reports the outcome of a batch operation: how many of the
// attempted operations succeeded, and the index/error pair for each one
// that failed.
type BatchResult struct {
	Total         int
	Successful    int
	Failed        int
	FailedIndices []int
	Errors        []error

	// IDs holds the id produced by each successful CreateElements call, in
	// input order; a failed index's slot is 0.
	IDs []int64
}

// AllSucceeded reports whether every item in the batch succeeded.
func (r BatchResult) AllSucceeded() bool { return r.Failed == 0 }

// AnyFailed reports whether at least one item in the batch failed.
func (r BatchResult) AnyFailed() bool { return r.Failed > 0 }

// chunkBounds splits [0,n) into index ranges no larger than size (size<=0
// means one chunk covering everything).
func chunkBounds(n, size int) [][2]int {
	if size <= 0 {
		if n == 0 {
			return nil
		}
		return [][2]int{{0, n}}
	}
	var bounds [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		bounds = append(bounds, [2]int{start, end})
	}
	return bounds
}

// CreateElements creates every element in elements against collection,
// chunked and transaction-scoped per opts. With StopOnError, the first
// failure rolls back its whole chunk and halts; chunks committed before it
// stay committed (with SingleTransaction the whole call is one chunk).
// When the caller already holds an open transaction, every chunk runs in
// it and nothing is rolled back here. Without StopOnError, every element
// is attempted inside its own savepoint, so a failing element leaves no
// partial rows, and failures are reported in the returned BatchResult
// rather than aborting the chunk.
func (s *Store) CreateElements(collection string, elements []*element.Element, opts BatchOptions) (BatchResult, error) {
	result := BatchResult{Total: len(elements), IDs: make([]int64, len(elements))}

	bounds := chunkBounds(len(elements), opts.ChunkSize)
	if opts.SingleTransaction {
		bounds = [][2]int{{0, len(elements)}}
	}

	for _, b := range bounds {
		err := s.withImplicitTx(func() error {
			for i := b[0]; i < b[1]; i++ {
				var sp *Savepoint
				if !opts.StopOnError {
					p, err := NewSavepoint(s, "")
					if err != nil {
						return err
					}
					sp = p
				}
				id, err := s.CreateElement(collection, elements[i])
				if err != nil {
					if opts.StopOnError {
						return err
					}
					_ = sp.RollbackTo()
					_ = sp.Release()
					result.Failed++
					result.FailedIndices = append(result.FailedIndices, i)
					result.Errors = append(result.Errors, err)
					continue
				}
				if sp != nil {
					if err := sp.Release(); err != nil {
						return err
					}
				}
				result.Successful++
				result.IDs[i] = id
			}
			return nil
		})
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// ScalarUpdate is one entry of a batch scalar update: overwrite column on
// the element identified by ID with Value.
type ScalarUpdate struct {
	ID     int64
	Column string
	Value  value.Value
}

// UpdateElements applies each ScalarUpdate in updates, sharing the same
// chunking/transaction/stop-on-error semantics as CreateElements.
func (s *Store) UpdateElements(collection string, updates []ScalarUpdate, opts BatchOptions) (BatchResult, error) {
	result := BatchResult{Total: len(updates)}

	if _, err := s.requireTable(collection); err != nil {
		return result, err
	}

	bounds := chunkBounds(len(updates), opts.ChunkSize)
	if opts.SingleTransaction {
		bounds = [][2]int{{0, len(updates)}}
	}

	for _, b := range bounds {
		err := s.withImplicitTx(func() error {
			for i := b[0]; i < b[1]; i++ {
				u := updates[i]
				if err := s.updateScalarByID(collection, u.Column, u.ID, u.Value); err != nil {
					if opts.StopOnError {
						return err
					}
					result.Failed++
					result.FailedIndices = append(result.FailedIndices, i)
					result.Errors = append(result.Errors, err)
					continue
				}
				result.Successful++
			}
			return nil
		})
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Store) updateScalarByID(collection, column string, id int64, v value.Value) error {
	tbl, err := s.requireTable(collection)
	if err != nil {
		return err
	}
	col, ok := tbl.Column(column)
	if !ok {
		return dberr.Newf(dberr.AttributeNotFound, collection, "unknown scalar attribute %q", column)
	}
	if err := typecheck.Validate(collection, column, v, col.Type); err != nil {
		return err
	}
	res, err := s.ex().Exec(
		fmt.Sprintf(`UPDATE %s SET %s = ? WHERE id = ?`, identifier.Quote(collection), identifier.Quote(column)),
		v.Any(), id)
	if err != nil {
		return dberr.Newf(dberr.SqlError, collection, "updating scalar parameter: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dberr.Newf(dberr.SqlError, collection, "checking update result: %v", err)
	}
	if n == 0 {
		return dberr.Newf(dberr.ElementNotFound, collection, "id %d not found", id)
	}
	return nil
}
