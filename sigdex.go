package sigdex

import (
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/sigdex/allocator"
	"github.com/hupe1980/sigdex/config"
	"github.com/hupe1980/sigdex/core"
	"github.com/hupe1980/sigdex/epoch"
	"github.com/hupe1980/sigdex/filemanager"
	"github.com/hupe1980/sigdex/index"
	"github.com/hupe1980/sigdex/schema"
	"github.com/hupe1980/sigdex/statistics"
	"github.com/hupe1980/sigdex/termtable"
)

// Document is the caller-supplied content of one document. Inside Ingest the
// document drives postings and fact assertions through the handle; it must
// return before the handle is committed.
type Document interface {
	// PostingCount returns the number of postings Ingest will add. It routes
	// the document to a shard and feeds the length histogram.
	PostingCount() int

	// Ingest writes the document's postings through the handle.
	Ingest(handle index.DocumentHandle) error
}

// Ingestor is the top-level ingest surface. It routes documents to shards,
// tracks the DocId to location mapping, and owns the reclamation machinery.
type Ingestor struct {
	shards          []*index.Shard
	shardDefinition *config.ShardDefinition
	docMap          *index.DocumentMap
	tokens          *epoch.TokenManager
	recycler        *epoch.Recycler
	alloc           allocator.SliceBufferAllocator
	histogram       *statistics.DocumentLengthHistogram

	fileManager            filemanager.FileManager
	truncateBelowFrequency float64

	logger  *Logger
	metrics MetricsCollector

	// deleteMu serialises deletes against each other: deletes on the same id
	// are not idempotent at the slice counter level.
	deleteMu sync.Mutex
}

// New builds an Ingestor over a frozen schema, a term table and a buffer
// pool. The schema is frozen here if the caller has not done so already.
func New(
	docSchema *schema.DocumentDataSchema,
	table termtable.TermTable,
	alloc allocator.SliceBufferAllocator,
	optFns ...Option,
) (*Ingestor, error) {
	o := applyOptions(optFns)

	docSchema.Freeze()

	tokens := epoch.NewTokenManager()
	recycler := epoch.NewRecycler(tokens)

	shardCount := o.shardDefinition.ShardCount()
	shards := make([]*index.Shard, 0, shardCount)
	for id := 0; id < shardCount; id++ {
		var freqBuilder *statistics.DocumentFrequencyTableBuilder
		if o.trackFrequencies {
			freqBuilder = statistics.NewDocumentFrequencyTableBuilder()
		}
		shard, err := index.NewShard(core.ShardId(id), recycler, table, docSchema, alloc, freqBuilder)
		if err != nil {
			recycler.Stop()
			return nil, fmt.Errorf("sigdex: creating shard %d: %w", id, err)
		}
		shards = append(shards, shard)
	}

	return &Ingestor{
		shards:                 shards,
		shardDefinition:        o.shardDefinition,
		docMap:                 index.NewDocumentMap(),
		tokens:                 tokens,
		recycler:               recycler,
		alloc:                  alloc,
		histogram:              statistics.NewDocumentLengthHistogram(),
		fileManager:            o.fileManager,
		truncateBelowFrequency: o.truncateBelowFrequency,
		logger:                 o.logger,
		metrics:                o.metricsCollector,
	}, nil
}

// Add ingests a document under id. On any failure after the column was
// allocated the column is rolled back by expiry, and the primary failure
// reaches the caller unmasked.
func (in *Ingestor) Add(id core.DocId, document Document) error {
	start := time.Now()
	postingCount := document.PostingCount()

	err := in.add(id, document, postingCount)

	in.metrics.RecordAdd(time.Since(start), err)
	in.metrics.RecordBuffersInUse(in.alloc.InUseCount())
	in.logger.LogAdd(uint64(id), postingCount, err)
	return err
}

func (in *Ingestor) add(id core.DocId, document Document, postingCount int) error {
	in.histogram.AddDocument(postingCount)

	shardId := in.shardDefinition.Shard(postingCount)
	handle := in.shards[shardId].AllocateDocument(id)

	if err := document.Ingest(handle); err != nil {
		// The column was never committed; commit it so expiry is legal, then
		// roll back.
		handle.Slice().CommitDocument()
		in.expireQuietly(handle)
		return fmt.Errorf("sigdex: ingesting document %d: %w", id, err)
	}

	handle.Activate()
	handle.Slice().CommitDocument()

	if err := in.docMap.Add(handle); err != nil {
		in.expireQuietly(handle)
		return translateError(err)
	}
	return nil
}

// expireQuietly rolls a column back after a failed add. Rollback errors are
// logged and swallowed so the primary failure is not masked.
func (in *Ingestor) expireQuietly(handle index.DocumentHandle) {
	if err := handle.Expire(); err != nil {
		in.logger.LogRollback(uint64(handle.DocId()), err)
	}
}

// Delete soft-deletes id and reports whether it was present. A missing id is
// not an error: range-based delete sweeps pass ids that were never added.
func (in *Ingestor) Delete(id core.DocId) (bool, error) {
	start := time.Now()
	found, err := in.delete(id)
	in.metrics.RecordDelete(time.Since(start), found, err)
	in.metrics.RecordBuffersInUse(in.alloc.InUseCount())
	in.logger.LogDelete(uint64(id), found, err)
	return found, err
}

func (in *Ingestor) delete(id core.DocId) (bool, error) {
	token, err := in.tokens.RequestToken()
	if err != nil {
		return false, translateError(err)
	}
	defer token.Release()

	in.deleteMu.Lock()
	defer in.deleteMu.Unlock()

	location, found := in.docMap.Find(id)
	if !found {
		return false, nil
	}

	in.docMap.Delete(id)
	if err := location.Expire(); err != nil {
		return true, err
	}
	return true, nil
}

// Contains reports whether the most recent of Add(id)/Delete(id) was an Add.
func (in *Ingestor) Contains(id core.DocId) bool {
	_, found := in.docMap.Find(id)
	return found
}

// AssertFact is reserved.
func (in *Ingestor) AssertFact(id core.DocId, fact core.FactHandle, value bool) error {
	return ErrNotImplemented
}

// OpenGroup is reserved.
func (in *Ingestor) OpenGroup(group core.GroupId) error {
	return ErrNotImplemented
}

// CloseGroup is reserved.
func (in *Ingestor) CloseGroup() error {
	return ErrNotImplemented
}

// ExpireGroup is reserved.
func (in *Ingestor) ExpireGroup(group core.GroupId) error {
	return ErrNotImplemented
}

// GetUsedCapacityInBytes is reserved. Per-shard accounting is available via
// Shard.UsedCapacityInBytes.
func (in *Ingestor) GetUsedCapacityInBytes() (int, error) {
	return 0, ErrNotImplemented
}

// ShardCount returns the number of shards.
func (in *Ingestor) ShardCount() int {
	return len(in.shards)
}

// Shard returns a shard by id.
func (in *Ingestor) Shard(id core.ShardId) *index.Shard {
	return in.shards[id]
}

// Recycler returns the deferred reclamation worker.
func (in *Ingestor) Recycler() *epoch.Recycler {
	return in.recycler
}

// TokenManager returns the read-side token issuer.
func (in *Ingestor) TokenManager() *epoch.TokenManager {
	return in.tokens
}

// DocumentCount returns the number of live documents.
func (in *Ingestor) DocumentCount() int {
	return in.docMap.Len()
}

// Shutdown refuses new tokens, waits for outstanding ones to drain, then
// drains and stops the recycler. After Shutdown no operation other than
// statistics emission is legal.
func (in *Ingestor) Shutdown() {
	in.tokens.Shutdown()
	in.recycler.Drain()
	in.recycler.Stop()
}

// PrintStatistics writes a human-readable summary of ingestion counters.
func (in *Ingestor) PrintStatistics(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Shard count: %d\n", len(in.shards)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Document count: %d\n", in.histogram.DocumentCount()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Posting count: %d\n", in.histogram.PostingCount())
	return err
}

// WriteStatistics emits the document length histogram and the per-shard
// frequency tables through the configured FileManager. Shards are written
// concurrently.
func (in *Ingestor) WriteStatistics() error {
	if in.fileManager == nil {
		return ErrNoFileManager
	}

	err := in.writeStatistics()
	in.logger.LogStatistics(len(in.shards), err)
	return err
}

func (in *Ingestor) writeStatistics() error {
	if err := writeArtifact(in.fileManager.DocumentLengthHistogram(), in.histogram.Write); err != nil {
		return err
	}

	g := new(errgroup.Group)
	for id, shard := range in.shards {
		shardId := core.ShardId(id)
		shard := shard
		g.Go(func() error {
			if err := writeArtifact(in.fileManager.CumulativeTermCounts(shardId), shard.WriteCumulativeTermCounts); err != nil {
				return err
			}
			if err := writeArtifact(in.fileManager.DocFreqTable(shardId), func(w io.Writer) error {
				return shard.WriteDocumentFrequencyTable(w, in.truncateBelowFrequency)
			}); err != nil {
				return err
			}
			return writeArtifact(in.fileManager.IndexedIdfTable(shardId), func(w io.Writer) error {
				return shard.WriteIndexedIdfTable(w, in.truncateBelowFrequency)
			})
		})
	}
	return g.Wait()
}

func writeArtifact(fd filemanager.FileDescriptor, write func(io.Writer) error) error {
	w, err := fd.OpenForWrite()
	if err != nil {
		return fmt.Errorf("sigdex: opening %s: %w", fd.Name(), err)
	}
	if err := write(w); err != nil {
		w.Close()
		return fmt.Errorf("sigdex: writing %s: %w", fd.Name(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sigdex: closing %s: %w", fd.Name(), err)
	}
	return nil
}
