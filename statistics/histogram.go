// Package statistics accumulates corpus statistics during ingestion: the
// document length histogram and per-shard term frequency tables.
package statistics

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"sync"
)

// DocumentLengthHistogram counts documents by posting count.
type DocumentLengthHistogram struct {
	mu           sync.Mutex
	buckets      map[int]int
	postingCount int
	docCount     int
}

// NewDocumentLengthHistogram returns an empty histogram.
func NewDocumentLengthHistogram() *DocumentLengthHistogram {
	return &DocumentLengthHistogram{
		buckets: make(map[int]int),
	}
}

// AddDocument records one document with the given posting count.
func (h *DocumentLengthHistogram) AddDocument(postingCount int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buckets[postingCount]++
	h.postingCount += postingCount
	h.docCount++
}

// PostingCount returns the total number of postings recorded.
func (h *DocumentLengthHistogram) PostingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.postingCount
}

// DocumentCount returns the total number of documents recorded.
func (h *DocumentLengthHistogram) DocumentCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.docCount
}

// Write emits the histogram as CSV rows of (postingCount, documentCount)
// ordered by posting count.
func (h *DocumentLengthHistogram) Write(w io.Writer) error {
	h.mu.Lock()
	lengths := make([]int, 0, len(h.buckets))
	for length := range h.buckets {
		lengths = append(lengths, length)
	}
	sort.Ints(lengths)

	rows := make([][2]int, 0, len(lengths))
	for _, length := range lengths {
		rows = append(rows, [2]int{length, h.buckets[length]})
	}
	h.mu.Unlock()

	cw := csv.NewWriter(w)
	for _, row := range rows {
		if err := cw.Write([]string{strconv.Itoa(row[0]), strconv.Itoa(row[1])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
