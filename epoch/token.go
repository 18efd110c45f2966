// Package epoch implements token-based deferred reclamation.
//
// Readers take a Token before walking shared structures and release it when
// done. A Snapshot captures the set of outstanding token serials at a moment
// in time; once every one of those tokens has been released the snapshot is
// drained, and anything retired before the snapshot was taken can no longer
// be referenced by a live reader.
package epoch

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// ErrShutdown is returned by RequestToken after Shutdown has begun.
var ErrShutdown = errors.New("epoch: token manager is shut down")

// Token is an opaque read-side lease. It must be released exactly once.
type Token struct {
	serial   uint64
	tm       *TokenManager
	released atomic.Bool
}

// Serial returns the token's serial number. Serials increase monotonically
// across the lifetime of the manager.
func (t *Token) Serial() uint64 {
	return t.serial
}

// Release returns the lease. Releasing a token twice panics.
func (t *Token) Release() {
	if t.released.Swap(true) {
		panic("epoch: token released twice")
	}
	t.tm.release(t.serial)
}

// Snapshot records the tokens outstanding at its creation. It is drained
// when every one of them has been released.
type Snapshot struct {
	pending *roaring64.Bitmap // guarded by the owning manager's mu
	done    chan struct{}
}

// Drained returns a channel that is closed once every token recorded in the
// snapshot has been released.
func (s *Snapshot) Drained() <-chan struct{} {
	return s.done
}

// TokenManager issues tokens and tracks which serials are still live.
type TokenManager struct {
	mu        sync.Mutex
	next      uint64
	live      *roaring64.Bitmap
	snapshots []*Snapshot
	shutdown  bool
}

// NewTokenManager returns a manager ready to issue tokens.
func NewTokenManager() *TokenManager {
	return &TokenManager{
		live: roaring64.New(),
	}
}

// RequestToken issues a new token, or ErrShutdown once Shutdown has begun.
func (tm *TokenManager) RequestToken() (*Token, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.shutdown {
		return nil, ErrShutdown
	}

	serial := tm.next
	tm.next++
	tm.live.Add(serial)

	return &Token{serial: serial, tm: tm}, nil
}

// TokensInFlight returns the number of outstanding tokens.
func (tm *TokenManager) TokensInFlight() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return int(tm.live.GetCardinality())
}

// NewSnapshot captures the currently outstanding tokens. A snapshot taken
// with no tokens in flight is drained immediately.
func (tm *TokenManager) NewSnapshot() *Snapshot {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	s := &Snapshot{
		pending: tm.live.Clone(),
		done:    make(chan struct{}),
	}
	if s.pending.IsEmpty() {
		close(s.done)
		return s
	}
	tm.snapshots = append(tm.snapshots, s)
	return s
}

// Shutdown refuses new tokens and blocks until every outstanding token has
// been released.
func (tm *TokenManager) Shutdown() {
	tm.mu.Lock()
	tm.shutdown = true
	tm.mu.Unlock()

	s := tm.NewSnapshot()
	<-s.Drained()
}

func (tm *TokenManager) release(serial uint64) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.live.Remove(serial)

	remaining := tm.snapshots[:0]
	for _, s := range tm.snapshots {
		s.pending.Remove(serial)
		if s.pending.IsEmpty() {
			close(s.done)
			continue
		}
		remaining = append(remaining, s)
	}
	for i := len(remaining); i < len(tm.snapshots); i++ {
		tm.snapshots[i] = nil
	}
	tm.snapshots = remaining
}
