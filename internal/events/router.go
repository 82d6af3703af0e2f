package events

import (
	"context"
	"fmt"
	"time"

	"bustravel/internal/metrics"
	"bustravel/internal/utils"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the notification handlers onto the transport.
func NewRouter(transport Transport, notifier Notifier, logger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("could not create router: %w", err)
	}

	useMiddlewares(router, logger)

	ep, err := cqrs.NewEventProcessorWithConfig(router, transport.processorConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("could not create event processor: %w", err)
	}

	if err := ep.AddHandlers(NotificationHandlers(notifier)...); err != nil {
		return nil, fmt.Errorf("could not add handlers to event processor: %w", err)
	}
	return router, nil
}

func useMiddlewares(router *message.Router, logger watermill.LoggerAdapter) {
	router.AddMiddleware(middleware.Recoverer)

	router.AddMiddleware(middleware.Retry{
		MaxRetries:      5,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          logger,
	}.Middleware)

	router.AddMiddleware(func(next message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			topic := message.SubscribeTopicFromCtx(msg.Context())
			handler := message.HandlerNameFromCtx(msg.Context())
			labels := prometheus.Labels{"topic": topic, "handler": handler}

			entry := utils.LoggerFromContext(msg.Context()).WithFields(logrus.Fields{
				"message_id": msg.UUID,
				"topic":      topic,
				"handler":    handler,
			})
			msg.SetContext(utils.ContextWithLogger(msg.Context(), entry))

			msgs, err := next(msg)
			if err != nil {
				entry.WithError(err).Error("Error while handling a message")
				metrics.MessagesProcessingFailed.With(labels).Inc()
			}
			metrics.MessagesProcessed.With(labels).Inc()
			return msgs, err
		}
	})
}

// NotificationHandlers turns domain events into notifications.
func NotificationHandlers(notifier Notifier) []cqrs.EventHandler {
	return []cqrs.EventHandler{
		cqrs.NewEventHandler("notify.BookingCreated", func(ctx context.Context, e *BookingCreated) error {
			return notifier.Notify(ctx, Notification{
				Kind:      "booking_confirmed",
				BookingID: e.BookingID,
				TripID:    e.TripID,
				Recipient: recipient(e.Contact.Email, e.Contact.Phone),
				Message:   fmt.Sprintf("booking %s confirmed for seats %v, total %s", e.BookingID, e.SeatNumbers, utils.FormatAmount(e.TotalAmount)),
			})
		}),
		cqrs.NewEventHandler("notify.BookingCancelled", func(ctx context.Context, e *BookingCancelled) error {
			return notifier.Notify(ctx, Notification{
				Kind:      "booking_cancelled",
				BookingID: e.BookingID,
				TripID:    e.TripID,
				Message:   "booking cancelled: " + e.Reason,
			})
		}),
		cqrs.NewEventHandler("notify.BookingExpired", func(ctx context.Context, e *BookingExpired) error {
			return notifier.Notify(ctx, Notification{
				Kind:      "booking_expired",
				BookingID: e.BookingID,
				TripID:    e.TripID,
				Message:   "booking expired before payment was received",
			})
		}),
		cqrs.NewEventHandler("notify.BookingRefundRequested", func(ctx context.Context, e *BookingRefundRequested) error {
			return notifier.Notify(ctx, Notification{
				Kind:      "refund_requested",
				BookingID: e.BookingID,
				TripID:    e.TripID,
				Message:   fmt.Sprintf("refund of %s requested: %s", utils.FormatAmount(e.Amount), e.Reason),
			})
		}),
		cqrs.NewEventHandler("notify.TripStatusChanged", func(ctx context.Context, e *TripStatusChanged) error {
			return notifier.Notify(ctx, Notification{
				Kind:    "trip_status",
				TripID:  e.TripID,
				Message: fmt.Sprintf("trip %s moved from %s to %s", e.TripID, e.From, e.To),
			})
		}),
	}
}

func recipient(email, phone string) string {
	if email != "" {
		return email
	}
	return phone
}
