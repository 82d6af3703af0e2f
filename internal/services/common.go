package services

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"bustravel/internal/events"
	"bustravel/internal/metrics"
	"bustravel/internal/utils"

	"github.com/lithammer/shortuuid/v3"
	"golang.org/x/crypto/blake2b"
)

type clock func() time.Time

func (c clock) now() time.Time {
	if c != nil {
		return c()
	}
	return time.Now()
}

// newOwnerToken returns the token handed to the client and the hash we keep.
func newOwnerToken() (token, hash string) {
	token = shortuuid.New()
	return token, hashOwnerToken(token)
}

func hashOwnerToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func ownerTokenMatches(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashOwnerToken(token)), []byte(hash)) == 1
}

// publish hands events to the bus after the state change committed. Failures
// are logged and counted; the state change stands.
func publish(ctx context.Context, pub events.Publisher, evts ...any) {
	if pub == nil {
		return
	}
	for _, evt := range evts {
		name := events.Name(evt)
		if err := pub.Publish(ctx, evt); err != nil {
			metrics.EventsPublished.WithLabelValues(name, "error").Inc()
			utils.LoggerFromContext(ctx).WithError(err).WithField("event", name).Warn("could not publish event")
			continue
		}
		metrics.EventsPublished.WithLabelValues(name, "ok").Inc()
	}
}
