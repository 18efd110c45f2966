package epoch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingRecyclable struct {
	recycled *atomic.Int32
}

func (c countingRecyclable) Recycle() {
	c.recycled.Add(1)
}

func TestRecyclerRecyclesImmediatelyWithoutReaders(t *testing.T) {
	tm := NewTokenManager()
	r := NewRecycler(tm)
	defer r.Stop()

	var recycled atomic.Int32
	r.Schedule(countingRecyclable{recycled: &recycled})
	r.Drain()

	require.Equal(t, int32(1), recycled.Load())
}

func TestRecyclerWaitsForReaders(t *testing.T) {
	tm := NewTokenManager()
	r := NewRecycler(tm)
	defer r.Stop()

	token, err := tm.RequestToken()
	require.NoError(t, err)

	var recycled atomic.Int32
	r.Schedule(countingRecyclable{recycled: &recycled})

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(0), recycled.Load(), "item recycled while a reader token is outstanding")

	token.Release()
	r.Drain()
	require.Equal(t, int32(1), recycled.Load())
}

func TestRecyclerDrainCoversManyItems(t *testing.T) {
	tm := NewTokenManager()
	r := NewRecycler(tm)
	defer r.Stop()

	var recycled atomic.Int32
	for i := 0; i < 100; i++ {
		r.Schedule(countingRecyclable{recycled: &recycled})
	}
	r.Drain()

	require.Equal(t, int32(100), recycled.Load())
}
