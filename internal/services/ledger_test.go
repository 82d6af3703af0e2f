package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"bustravel/internal/domain"
	"bustravel/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerTryHoldIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	trip := f.newTrip(t, 8)
	ctx := context.Background()

	require.NoError(t, f.ledger.TryHold(ctx, trip.ID, []string{"A1", "A2"}, "h1", time.Minute))

	err := f.ledger.TryHold(ctx, trip.ID, []string{"A3", "A2", "Z9"}, "h2", time.Minute)
	require.Error(t, err)
	assert.True(t, domain.IsSeatUnavailable(err))
	var conflict domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.ElementsMatch(t, []string{"A2", "Z9"}, conflict.Seats)

	states := seatStates(t, f, trip.ID)
	assert.Equal(t, models.SeatFree, states["A3"], "a failed hold must not leave partial seats")
	assert.Equal(t, models.SeatHeld, states["A1"])
	assert.Equal(t, models.SeatHeld, states["A2"])
}

func TestLedgerRejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	trip := f.newTrip(t, 4)
	ctx := context.Background()

	err := f.ledger.TryHold(ctx, trip.ID, nil, "h1", time.Minute)
	assert.True(t, domain.IsValidation(err))

	err = f.ledger.TryHold(ctx, trip.ID, []string{"a1", "A1"}, "h1", time.Minute)
	assert.True(t, domain.IsValidation(err))

	err = f.ledger.TryHold(ctx, trip.ID, []string{"A1"}, "h1", 0)
	assert.True(t, domain.IsValidation(err))

	err = f.ledger.TryHold(ctx, "missing", []string{"A1"}, "h1", time.Minute)
	assert.True(t, domain.IsNotFound(err))
}

func TestLedgerReleaseAndCommit(t *testing.T) {
	f := newFixture(t)
	trip := f.newTrip(t, 4)
	ctx := context.Background()

	require.NoError(t, f.ledger.TryHold(ctx, trip.ID, []string{"A1"}, "h1", time.Minute))
	require.NoError(t, f.ledger.Release(ctx, trip.ID, "h1"))
	require.NoError(t, f.ledger.Release(ctx, trip.ID, "h1"))
	assert.Equal(t, models.SeatFree, seatStates(t, f, trip.ID)["A1"])

	err := f.ledger.Commit(ctx, trip.ID, "h1", "b1")
	assert.True(t, domain.IsHoldExpired(err))

	require.NoError(t, f.ledger.TryHold(ctx, trip.ID, []string{"A2", "A3"}, "h2", time.Minute))
	require.NoError(t, f.ledger.Commit(ctx, trip.ID, "h2", "b2"))

	sm, err := f.ledger.SeatsOf(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sm.Booked)
	assert.Equal(t, 2, sm.Free)
	assert.Equal(t, 0, sm.Held)
	for _, s := range sm.Seats {
		if s.State == models.SeatBooked {
			assert.Equal(t, "b2", s.BookingID)
			assert.Empty(t, s.HoldID)
			assert.Nil(t, s.HeldUntil)
		}
	}
}

func TestLedgerCommitFailsAfterHeldUntil(t *testing.T) {
	f := newFixture(t)
	trip := f.newTrip(t, 4)
	ctx := context.Background()

	require.NoError(t, f.ledger.TryHold(ctx, trip.ID, []string{"A1"}, "h1", time.Minute))
	f.clock.Advance(time.Minute)

	err := f.ledger.Commit(ctx, trip.ID, "h1", "b1")
	assert.True(t, domain.IsHoldExpired(err))
	assert.Equal(t, models.SeatHeld, seatStates(t, f, trip.ID)["A1"])
}

func TestLedgerNoOversellUnderContention(t *testing.T) {
	f := newFixture(t)
	trip := f.newTrip(t, 8)
	ctx := context.Background()

	const workers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners = map[string]string{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			holdID := fmt.Sprintf("h%d", i)
			// overlapping pairs: every seat is wanted by several workers
			seats := []string{fmt.Sprintf("A%d", i%4+1), fmt.Sprintf("B%d", (i/4)%4+1)}
			if err := f.ledger.TryHold(ctx, trip.ID, seats, holdID, time.Minute); err != nil {
				if !domain.IsSeatUnavailable(err) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			for _, s := range seats {
				if prev, ok := winners[s]; ok {
					t.Errorf("seat %s held by %s and %s", s, prev, holdID)
				}
				winners[s] = holdID
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	sm, err := f.ledger.SeatsOf(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, len(winners), sm.Held)
	for _, s := range sm.Seats {
		if s.State == models.SeatHeld {
			assert.Equal(t, winners[s.SeatNumber], s.HoldID)
		}
	}
}
