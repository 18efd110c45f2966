package epoch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManagerRequestRelease(t *testing.T) {
	tm := NewTokenManager()

	a, err := tm.RequestToken()
	require.NoError(t, err)
	b, err := tm.RequestToken()
	require.NoError(t, err)

	assert.Equal(t, 2, tm.TokensInFlight())
	assert.NotEqual(t, a.Serial(), b.Serial())

	a.Release()
	assert.Equal(t, 1, tm.TokensInFlight())
	b.Release()
	assert.Equal(t, 0, tm.TokensInFlight())
}

func TestTokenDoubleReleasePanics(t *testing.T) {
	tm := NewTokenManager()

	token, err := tm.RequestToken()
	require.NoError(t, err)
	token.Release()
	assert.Panics(t, func() { token.Release() })
}

func TestSnapshotDrainsWhenEmpty(t *testing.T) {
	tm := NewTokenManager()

	s := tm.NewSnapshot()
	select {
	case <-s.Drained():
	default:
		t.Fatal("snapshot with no outstanding tokens should drain immediately")
	}
}

func TestSnapshotWaitsForPriorTokensOnly(t *testing.T) {
	tm := NewTokenManager()

	before, err := tm.RequestToken()
	require.NoError(t, err)

	s := tm.NewSnapshot()

	// A token issued after the snapshot must not hold it open.
	after, err := tm.RequestToken()
	require.NoError(t, err)

	select {
	case <-s.Drained():
		t.Fatal("snapshot drained while a prior token is outstanding")
	default:
	}

	before.Release()
	select {
	case <-s.Drained():
	case <-time.After(time.Second):
		t.Fatal("snapshot did not drain after the prior token was released")
	}

	after.Release()
}

func TestShutdownRefusesNewTokens(t *testing.T) {
	tm := NewTokenManager()
	tm.Shutdown()

	_, err := tm.RequestToken()
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestShutdownWaitsForOutstandingTokens(t *testing.T) {
	tm := NewTokenManager()

	token, err := tm.RequestToken()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		tm.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Shutdown returned while a token is outstanding")
	case <-time.After(20 * time.Millisecond):
	}

	token.Release()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return after the last token was released")
	}
}
