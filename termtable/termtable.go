// Package termtable defines the contract between the ingestion core and the
// term-to-row mapping built by the index construction pipeline.
package termtable

import (
	"github.com/hupe1980/sigdex/core"
)

// TermTable maps terms onto row ids. Implementations are shared read-only
// after construction; every method must be safe for concurrent use.
type TermTable interface {
	// TotalRowCount returns the number of rows at the given rank, including
	// system rows.
	TotalRowCount(rank core.Rank) core.RowIndex

	// MaxRankUsed returns the highest rank with at least one row.
	MaxRankUsed() core.Rank

	// DocumentActiveTerm returns the system term whose single rank-0 row
	// marks documents as active (bit set) or soft-deleted (bit clear).
	DocumentActiveTerm() core.Term

	// MatchAllTerm returns the system term whose single rank-0 row has every
	// bit set for the lifetime of the slice.
	MatchAllTerm() core.Term

	// RowIds expands a term into the rows that carry its postings.
	RowIds(term core.Term) []core.RowId
}

// RowIdSequence expands a term through the table. It exists so call sites
// read the same way whether the expansion is precomputed or derived.
func RowIdSequence(term core.Term, table TermTable) []core.RowId {
	return table.RowIds(term)
}
