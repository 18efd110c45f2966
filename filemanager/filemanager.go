// Package filemanager names the statistics artifacts the ingestion core
// emits. The core never builds file paths itself; it asks the FileManager
// for a descriptor and streams through it.
package filemanager

import (
	"io"

	"github.com/hupe1980/sigdex/core"
)

// FileDescriptor is an opaque handle for one named artifact.
type FileDescriptor interface {
	// Name returns the artifact's file name.
	Name() string

	// OpenForWrite truncates the artifact and returns a writer.
	OpenForWrite() (io.WriteCloser, error)

	// OpenForRead returns a reader over the artifact.
	OpenForRead() (io.ReadCloser, error)

	// Exists reports whether the artifact is present.
	Exists() bool

	// Delete removes the artifact.
	Delete() error
}

// FileManager hands out descriptors for the artifacts written at the end of
// ingestion.
type FileManager interface {
	// DocumentLengthHistogram is the per-index posting count histogram.
	DocumentLengthHistogram() FileDescriptor

	// CumulativeTermCounts is the per-shard (documentCount, uniqueTermCount)
	// series.
	CumulativeTermCounts(shard core.ShardId) FileDescriptor

	// DocFreqTable is the per-shard term frequency table.
	DocFreqTable(shard core.ShardId) FileDescriptor

	// IndexedIdfTable is the per-shard binary idf table.
	IndexedIdfTable(shard core.ShardId) FileDescriptor
}
