package index

import (
	"errors"
	"fmt"

	"github.com/hupe1980/sigdex/core"
)

var (
	// ErrNothingToExpire is returned when ExpireDocument is called with no
	// committed, unexpired document left in the slice.
	ErrNothingToExpire = errors.New("index: expire requires a committed document")

	// ErrSliceNotExpired is returned when a slice is handed to RecycleSlice
	// before every document in it has been expired.
	ErrSliceNotExpired = errors.New("index: slice being recycled has not been fully expired")

	// ErrSliceBufferNotFound is returned when the buffer of a slice being
	// recycled is missing from the published buffer list.
	ErrSliceBufferNotFound = errors.New("index: slice buffer not found in the published buffer list")

	// ErrNoActiveRow is returned when the term table's document-active term
	// expands to no rows.
	ErrNoActiveRow = errors.New("index: document-active term expands to no rows")

	// ErrActiveRowNotRank0 is returned when the document-active row is not a
	// rank-0 row.
	ErrActiveRowNotRank0 = errors.New("index: document-active row must be rank 0")

	// ErrMultipleActiveRows is returned when the document-active term
	// expands to more than one row.
	ErrMultipleActiveRows = errors.New("index: document-active term expands to more than one row")
)

// ErrFactRowCount indicates a fact term that did not expand to exactly one
// row.
type ErrFactRowCount struct {
	Fact     core.FactHandle
	RowCount int
}

func (e *ErrFactRowCount) Error() string {
	return fmt.Sprintf("index: fact %d expands to %d rows, want 1", e.Fact, e.RowCount)
}
