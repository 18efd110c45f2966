package termtable

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/hupe1980/sigdex/core"
)

// System rows at rank 0. Row 0 is the active-document row, row 1 the
// match-all row.
const (
	activeRowIndex   core.RowIndex = 0
	matchAllRowIndex core.RowIndex = 1

	// SystemRowCount is the number of rank-0 rows reserved for system terms.
	SystemRowCount core.RowIndex = 2
)

const systemStream core.StreamId = 254

var (
	documentActiveTerm = core.Term{Hash: 1, StreamId: systemStream, GramSize: 1}
	matchAllTerm       = core.Term{Hash: 2, StreamId: systemStream, GramSize: 1}
)

// FixedTermTable is a deterministic TermTable with a configured number of
// rows per rank. Regular terms map to a fixed number of rows at their rank by
// hashing; facts map to exactly one rank-0 row, chosen by hash from the same
// non-system rank-0 rows that regular terms use. It serves small
// deployments and tests; the full table construction pipeline produces
// treatment-aware tables behind the same interface.
type FixedTermTable struct {
	rowCounts   []core.RowIndex // indexed by rank, 0..MaxRank
	rowsPerTerm int
	maxRankUsed core.Rank
}

var _ TermTable = (*FixedTermTable)(nil)

// NewFixed builds a FixedTermTable. rowCounts holds the number of rows at
// each rank starting at rank 0; missing ranks default to zero rows. Rank 0
// must have room for the system rows. rowsPerTerm is the number of rows a
// regular term maps to (minimum 1).
func NewFixed(rowCounts []core.RowIndex, rowsPerTerm int) *FixedTermTable {
	if len(rowCounts) == 0 || rowCounts[0] < SystemRowCount {
		panic("termtable: rank 0 must include the system rows")
	}
	if rowsPerTerm < 1 {
		rowsPerTerm = 1
	}

	counts := make([]core.RowIndex, core.MaxRank+1)
	copy(counts, rowCounts)

	maxRank := core.Rank(0)
	for r := core.Rank(0); r <= core.MaxRank; r++ {
		if counts[r] > 0 {
			maxRank = r
		}
	}

	return &FixedTermTable{
		rowCounts:   counts,
		rowsPerTerm: rowsPerTerm,
		maxRankUsed: maxRank,
	}
}

// TotalRowCount implements TermTable.
func (t *FixedTermTable) TotalRowCount(rank core.Rank) core.RowIndex {
	if rank < 0 || rank > core.MaxRank {
		return 0
	}
	return t.rowCounts[rank]
}

// MaxRankUsed implements TermTable.
func (t *FixedTermTable) MaxRankUsed() core.Rank {
	return t.maxRankUsed
}

// DocumentActiveTerm implements TermTable.
func (t *FixedTermTable) DocumentActiveTerm() core.Term {
	return documentActiveTerm
}

// MatchAllTerm implements TermTable.
func (t *FixedTermTable) MatchAllTerm() core.Term {
	return matchAllTerm
}

// RowIds implements TermTable.
func (t *FixedTermTable) RowIds(term core.Term) []core.RowId {
	switch {
	case term == documentActiveTerm:
		return []core.RowId{{Rank: 0, Index: activeRowIndex}}
	case term == matchAllTerm:
		return []core.RowId{{Rank: 0, Index: matchAllRowIndex}}
	case term.StreamId == core.FactStream:
		return t.factRows(term)
	default:
		return t.termRows(term)
	}
}

func (t *FixedTermTable) factRows(term core.Term) []core.RowId {
	avail := t.availableRows(0)
	if avail == 0 {
		return nil
	}
	index := SystemRowCount + core.RowIndex(term.Hash%uint64(avail))
	return []core.RowId{{Rank: 0, Index: index}}
}

func (t *FixedTermTable) termRows(term core.Term) []core.RowId {
	rank := term.Rank
	if rank < 0 || rank > core.MaxRank || t.rowCounts[rank] == 0 {
		rank = 0
	}
	avail := t.availableRows(rank)
	if avail == 0 {
		return nil
	}

	offset := core.RowIndex(0)
	if rank == 0 {
		offset = SystemRowCount
	}

	rows := make([]core.RowId, 0, t.rowsPerTerm)
	for i := 0; i < t.rowsPerTerm; i++ {
		rows = append(rows, core.RowId{
			Rank:  rank,
			Index: offset + core.RowIndex(rehash(term.Hash, uint64(i))%uint64(avail)),
		})
	}
	return rows
}

func (t *FixedTermTable) availableRows(rank core.Rank) core.RowIndex {
	n := t.rowCounts[rank]
	if rank == 0 {
		if n <= SystemRowCount {
			return 0
		}
		return n - SystemRowCount
	}
	return n
}

func rehash(h, i uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], h)
	binary.LittleEndian.PutUint64(buf[8:], i)
	return xxhash.Sum64(buf[:])
}
