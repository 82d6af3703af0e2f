package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"bustravel/internal/domain/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
	ch    chan Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	r.notes = append(r.notes, n)
	r.mu.Unlock()
	r.ch <- n
	return nil
}

func TestBookingCreatedReachesNotifier(t *testing.T) {
	logger := NewWatermillLogger(logrus.NewEntry(logrus.StandardLogger()))
	transport := NewInMemoryTransport(logger)
	rec := &recordingNotifier{ch: make(chan Notification, 4)}

	router, err := NewRouter(transport, rec, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = router.Run(ctx)
	}()
	<-router.Running()

	bus, err := NewEventBus(transport.Publisher)
	require.NoError(t, err)

	err = bus.Publish(ctx, &BookingCreated{
		Header:      NewEventHeaderWithIdempotencyKey("bk-1"),
		BookingID:   "bk-1",
		TripID:      "trip-1",
		SeatNumbers: []string{"A1", "A2"},
		TotalAmount: 300000,
		Contact:     models.ContactInfo{Name: "Ani", Phone: "0812345678", Email: "ani@example.com"},
	})
	require.NoError(t, err)

	select {
	case n := <-rec.ch:
		assert.Equal(t, "booking_confirmed", n.Kind)
		assert.Equal(t, "bk-1", n.BookingID)
		assert.Equal(t, "ani@example.com", n.Recipient)
		assert.Contains(t, n.Message, "300.000")
	case <-time.After(5 * time.Second):
		t.Fatal("notification not delivered")
	}

	cancel()
	require.NoError(t, router.Close())
	<-done
	require.NoError(t, transport.Close())
}

func TestEventNamesAreStructNames(t *testing.T) {
	assert.Equal(t, "TripStatusChanged", Name(&TripStatusChanged{}))
	assert.Equal(t, "events.BookingExpired", topicFor(Name(BookingExpired{})))
}

func TestWatermillLoggerCombinesFields(t *testing.T) {
	base := NewWatermillLogger(logrus.NewEntry(logrus.StandardLogger()))
	child := base.With(map[string]any{"a": 1}).With(map[string]any{"b": 2})

	wl, ok := child.(*watermillLogger)
	require.True(t, ok)
	assert.Equal(t, 1, wl.fields["a"])
	assert.Equal(t, 2, wl.fields["b"])
	assert.Empty(t, base.(*watermillLogger).fields)
}
