package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notification is what the notification collaborator receives.
type Notification struct {
	Kind      string
	BookingID string
	TripID    string
	Recipient string
	Message   string
}

// Notifier delivers notifications to riders, drivers or operators. The core
// never sends mail itself.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Logger *logrus.Entry
}

func (n LogNotifier) Notify(_ context.Context, note Notification) error {
	logger := n.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger.WithFields(logrus.Fields{
		"module":     "notify",
		"kind":       note.Kind,
		"booking_id": note.BookingID,
		"trip_id":    note.TripID,
		"recipient":  note.Recipient,
	}).Info(note.Message)
	return nil
}
