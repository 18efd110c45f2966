// Package sigdex is the ingestion core of a bit-sliced signature search
// index.
//
// Callers submit (DocId, Document) pairs to an Ingestor. Documents are
// routed to a Shard by posting count; the shard's active Slice assigns a
// dense column, and the document's postings become set bits in the shard's
// rank-stratified row tables, all co-resident in one pooled buffer per
// slice. Deletion is a soft-delete bit flip; fully expired slices are
// reclaimed through a token-based epoch scheme so readers never observe a
// freed buffer.
//
// Basic usage:
//
//	docSchema := schema.New()
//	docSchema.Freeze()
//
//	table := termtable.NewFixed([]core.RowIndex{64, 0, 0, 16}, 3)
//	pool := allocator.NewPool(1 << 20)
//
//	ing, err := sigdex.New(docSchema, table, pool)
//	if err != nil { ... }
//	defer ing.Shutdown()
//
//	err = ing.Add(42, doc)
//	found, err := ing.Delete(42)
package sigdex
