package epoch

import (
	"sync"
)

// Recyclable is a retired resource whose destruction must wait for the
// readers that may still reference it.
type Recyclable interface {
	// Recycle destroys the resource. It is called exactly once, after every
	// token that existed when the item was scheduled has been released.
	Recycle()
}

// Recycler defers destruction of retired items until the reader epoch that
// could still see them has drained.
//
// Each scheduled item is paired with a fresh snapshot from the token manager
// and parked on a bounded queue; a worker goroutine waits for the snapshot to
// drain and then calls Recycle.
type Recycler struct {
	tm *TokenManager

	queue    chan recyclerItem
	stopOnce sync.Once
	wg       sync.WaitGroup // worker lifetime
	inFlight sync.WaitGroup // scheduled-but-unrecycled items
}

type recyclerItem struct {
	item Recyclable
	snap *Snapshot
}

const recyclerQueueDepth = 256

// NewRecycler starts a recycler backed by the given token manager.
func NewRecycler(tm *TokenManager) *Recycler {
	r := &Recycler{
		tm:    tm,
		queue: make(chan recyclerItem, recyclerQueueDepth),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Schedule parks item until all currently outstanding tokens drain, then
// destroys it on the recycler worker. Schedule may block briefly when the
// queue is full.
func (r *Recycler) Schedule(item Recyclable) {
	r.inFlight.Add(1)
	r.queue <- recyclerItem{item: item, snap: r.tm.NewSnapshot()}
}

// Drain blocks until every item scheduled so far has been recycled. It does
// not stop the worker.
func (r *Recycler) Drain() {
	r.inFlight.Wait()
}

// Stop drains the queue and terminates the worker. Items scheduled after
// Stop panic. Stop must be called after the token manager has shut down,
// otherwise an undrained snapshot can block it indefinitely.
func (r *Recycler) Stop() {
	r.stopOnce.Do(func() {
		close(r.queue)
		r.wg.Wait()
	})
}

func (r *Recycler) run() {
	defer r.wg.Done()
	for it := range r.queue {
		<-it.snap.Drained()
		it.item.Recycle()
		r.inFlight.Done()
	}
}
