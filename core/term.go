package core

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// StreamId distinguishes token streams (body, title, anchor text, ...) so
// that the same token hashes differently per stream.
type StreamId uint8

// Term is a hashed token. Two terms are the same posting key iff their raw
// hashes are equal; the raw hash already folds in the stream and gram size.
type Term struct {
	Hash     uint64
	StreamId StreamId
	GramSize uint8
	Rank     Rank
}

// NewTerm hashes a single token in the given stream.
func NewTerm(text string, streamId StreamId) Term {
	return Term{
		Hash:     hashToken(xxhash.Sum64String(text), streamId, 1),
		StreamId: streamId,
		GramSize: 1,
	}
}

// NewPhraseTerm hashes an n-gram by chaining the per-token hashes.
func NewPhraseTerm(tokens []string, streamId StreamId) Term {
	var h uint64
	for _, token := range tokens {
		h = combineHash(h, xxhash.Sum64String(token))
	}
	n := len(tokens)
	if n > 255 {
		n = 255
	}
	return Term{
		Hash:     hashToken(h, streamId, uint8(n)),
		StreamId: streamId,
		GramSize: uint8(n),
	}
}

// NewFactTerm converts a fact handle into its term. Facts live in their own
// stream so they can never collide with token postings.
func NewFactTerm(fact FactHandle) Term {
	return Term{
		Hash:     uint64(fact),
		StreamId: FactStream,
		GramSize: 1,
	}
}

// FactStream is the reserved stream for fact rows.
const FactStream StreamId = 255

func hashToken(raw uint64, streamId StreamId, gramSize uint8) uint64 {
	var salt [10]byte
	binary.LittleEndian.PutUint64(salt[:8], raw)
	salt[8] = byte(streamId)
	salt[9] = gramSize
	return xxhash.Sum64(salt[:])
}

func combineHash(acc, h uint64) uint64 {
	if acc == 0 {
		return h
	}
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], acc)
	binary.LittleEndian.PutUint64(buf[8:], h)
	return xxhash.Sum64(buf[:])
}
