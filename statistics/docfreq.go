package statistics

import (
	"encoding/binary"
	"encoding/csv"
	"io"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/hupe1980/sigdex/core"
)

// Entry pairs a term with the fraction of documents that contain it.
type Entry struct {
	Term      core.Term
	Frequency float64
}

// DocumentFrequencyTableBuilder accumulates term document frequencies during
// ingestion. Every method takes the builder's own mutex, so callers such as
// the Shard use it without further locking.
type DocumentFrequencyTableBuilder struct {
	mu         sync.Mutex
	docCount   int
	counts     map[core.Term]int
	cumulative [][2]int // (documentCount, uniqueTermCount) at each document entry
}

// NewDocumentFrequencyTableBuilder returns an empty builder.
func NewDocumentFrequencyTableBuilder() *DocumentFrequencyTableBuilder {
	return &DocumentFrequencyTableBuilder{
		counts: make(map[core.Term]int),
	}
}

// OnDocumentEnter records the start of a new document and snapshots the
// cumulative unique term count.
func (b *DocumentFrequencyTableBuilder) OnDocumentEnter() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docCount++
	b.cumulative = append(b.cumulative, [2]int{b.docCount, len(b.counts)})
}

// OnTerm records one posting of term in the current document.
func (b *DocumentFrequencyTableBuilder) OnTerm(t core.Term) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[t]++
}

// DocumentCount returns the number of documents entered so far.
func (b *DocumentFrequencyTableBuilder) DocumentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.docCount
}

// Entries returns the term entries with frequency >= truncateBelowFrequency,
// sorted by descending frequency. Ties break on the term hash so the order
// is deterministic.
func (b *DocumentFrequencyTableBuilder) Entries(truncateBelowFrequency float64) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.docCount == 0 {
		return nil
	}

	entries := make([]Entry, 0, len(b.counts))
	for t, count := range b.counts {
		frequency := float64(count) / float64(b.docCount)
		if frequency >= truncateBelowFrequency {
			entries = append(entries, Entry{Term: t, Frequency: frequency})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Frequency != entries[j].Frequency {
			return entries[i].Frequency > entries[j].Frequency
		}
		return entries[i].Term.Hash < entries[j].Term.Hash
	})
	return entries
}

// WriteFrequencies emits CSV rows of (hash, streamId, gramSize, frequency)
// for every entry at or above truncateBelowFrequency, in descending
// frequency order.
func (b *DocumentFrequencyTableBuilder) WriteFrequencies(w io.Writer, truncateBelowFrequency float64) error {
	cw := csv.NewWriter(w)
	for _, e := range b.Entries(truncateBelowFrequency) {
		row := []string{
			strconv.FormatUint(e.Term.Hash, 16),
			strconv.Itoa(int(e.Term.StreamId)),
			strconv.Itoa(int(e.Term.GramSize)),
			strconv.FormatFloat(e.Frequency, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteIndexedIdfTable emits the binary idf table: a little-endian uint32
// entry count followed by (hash uint64, streamId uint8, gramSize uint8,
// idfX10 uint8) records. idfX10 is log10(1/frequency) scaled by ten and
// clamped to a byte.
func (b *DocumentFrequencyTableBuilder) WriteIndexedIdfTable(w io.Writer, truncateBelowFrequency float64) error {
	entries := b.Entries(truncateBelowFrequency)

	if err := binary.Write(w, binary.LittleEndian, uint32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := binary.Write(w, binary.LittleEndian, e.Term.Hash); err != nil {
			return err
		}
		record := [3]byte{byte(e.Term.StreamId), e.Term.GramSize, idfX10(e.Frequency)}
		if _, err := w.Write(record[:]); err != nil {
			return err
		}
	}
	return nil
}

// WriteCumulativeTermCounts emits CSV rows of (documentCount,
// uniqueTermCount), one per document entered.
func (b *DocumentFrequencyTableBuilder) WriteCumulativeTermCounts(w io.Writer) error {
	b.mu.Lock()
	rows := make([][2]int, len(b.cumulative))
	copy(rows, b.cumulative)
	b.mu.Unlock()

	cw := csv.NewWriter(w)
	for _, row := range rows {
		if err := cw.Write([]string{strconv.Itoa(row[0]), strconv.Itoa(row[1])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func idfX10(frequency float64) byte {
	if frequency <= 0 {
		return math.MaxUint8
	}
	idf := -math.Log10(frequency)
	if idf < 0 {
		idf = 0
	}
	scaled := math.Round(idf * 10)
	if scaled > math.MaxUint8 {
		return math.MaxUint8
	}
	return byte(scaled)
}
