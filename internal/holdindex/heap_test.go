package holdindex

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testIndexContract runs the behaviour every ExpiryIndex must share.
func testIndexContract(t *testing.T, idx ExpiryIndex) {
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, idx.Add(ctx, Entry{HoldID: "h3", TripID: "t1", ExpiresAt: base.Add(3 * time.Minute)}))
	require.NoError(t, idx.Add(ctx, Entry{HoldID: "h1", TripID: "t1", ExpiresAt: base.Add(1 * time.Minute)}))
	require.NoError(t, idx.Add(ctx, Entry{HoldID: "h2", TripID: "t2", ExpiresAt: base.Add(2 * time.Minute)}))

	n, err := idx.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	due, err := idx.Due(ctx, base, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = idx.Due(ctx, base.Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "h1", due[0].HoldID)
	assert.Equal(t, "h2", due[1].HoldID)
	assert.Equal(t, "t2", due[1].TripID)

	// extending a hold moves it out of the due window
	require.NoError(t, idx.Add(ctx, Entry{HoldID: "h1", TripID: "t1", ExpiresAt: base.Add(10 * time.Minute)}))
	due, err = idx.Due(ctx, base.Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "h2", due[0].HoldID)

	require.NoError(t, idx.Remove(ctx, "h2"))
	require.NoError(t, idx.Remove(ctx, "unknown"))
	due, err = idx.Due(ctx, base.Add(5*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "h3", due[0].HoldID)

	n, err = idx.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestHeapContract(t *testing.T) {
	testIndexContract(t, NewHeap())
}

func TestHeapDueRespectsLimitAndOrder(t *testing.T) {
	ctx := context.Background()
	h := NewHeap()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 20; i > 0; i-- {
		require.NoError(t, h.Add(ctx, Entry{HoldID: fmt.Sprintf("h%02d", i), ExpiresAt: base.Add(time.Duration(i) * time.Second)}))
	}

	due, err := h.Due(ctx, base.Add(15*time.Second), 5)
	require.NoError(t, err)
	require.Len(t, due, 5)
	for i, e := range due {
		assert.Equal(t, fmt.Sprintf("h%02d", i+1), e.HoldID)
	}

	all, err := h.Due(ctx, base.Add(15*time.Second), 0)
	require.NoError(t, err)
	assert.Len(t, all, 15)
}

func TestHeapRemoveKeepsHeapValid(t *testing.T) {
	ctx := context.Background()
	h := NewHeap()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		require.NoError(t, h.Add(ctx, Entry{HoldID: fmt.Sprintf("h%02d", i), ExpiresAt: base.Add(time.Duration((i*37)%50) * time.Second)}))
	}
	for i := 0; i < 50; i += 3 {
		require.NoError(t, h.Remove(ctx, fmt.Sprintf("h%02d", i)))
	}

	due, err := h.Due(ctx, base.Add(time.Hour), 0)
	require.NoError(t, err)
	n, _ := h.Len(ctx)
	assert.Len(t, due, n)
	for i := 1; i < len(due); i++ {
		assert.False(t, due[i].ExpiresAt.Before(due[i-1].ExpiresAt), "entries out of order at %d", i)
	}
}
