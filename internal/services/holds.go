package services

import (
	"context"
	"fmt"
	"time"

	"bustravel/internal/domain"
	"bustravel/internal/domain/models"
	"bustravel/internal/events"
	"bustravel/internal/holdindex"
	"bustravel/internal/metrics"
	"bustravel/internal/repositories"
	"bustravel/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Hold release reasons, used for metrics and events.
const (
	ReleaseExpired       = "expired"
	ReleaseCancelled     = "cancelled"
	ReleaseTripStarted   = "trip_started"
	ReleaseTripCancelled = "trip_cancelled"
)

type HoldConfig struct {
	DefaultTTL    time.Duration
	MaxTTL        time.Duration
	MaxLifetime   time.Duration
	MaxSeats      int
	SweepInterval time.Duration
	SweepBatch    int
	Retention     time.Duration
}

func DefaultHoldConfig() HoldConfig {
	return HoldConfig{
		DefaultTTL:    10 * time.Minute,
		MaxTTL:        15 * time.Minute,
		MaxLifetime:   30 * time.Minute,
		MaxSeats:      6,
		SweepInterval: 2 * time.Second,
		SweepBatch:    100,
		Retention:     24 * time.Hour,
	}
}

// UnpaidExpirer is run after each sweep when booking payment deadlines are on.
type UnpaidExpirer interface {
	ExpireUnpaid(ctx context.Context) (int, error)
}

// HoldManager issues time-bounded holds and releases them when they expire.
// Every ACTIVE hold is in Index before its seats become HELD, so the sweep
// sees it even if the process dies right after the commit.
type HoldManager struct {
	Store   repositories.Store
	Ledger  *SeatLedger
	Index   holdindex.ExpiryIndex
	Events  events.Publisher
	Config  HoldConfig
	Now     func() time.Time
	Expirer UnpaidExpirer
}

type CreateHoldInput struct {
	TripID      string
	SeatNumbers []string
	TTL         time.Duration
}

func (m *HoldManager) now() time.Time { return clock(m.Now).now() }

func (m *HoldManager) ttl(requested time.Duration) (time.Duration, error) {
	switch {
	case requested < 0:
		return 0, domain.ValidationError{Field: "ttlSeconds", Code: domain.CodeInvalidField, Msg: "must not be negative"}
	case requested == 0:
		requested = m.Config.DefaultTTL
	}
	if m.Config.MaxTTL > 0 && requested > m.Config.MaxTTL {
		requested = m.Config.MaxTTL
	}
	if requested <= 0 {
		return 0, domain.ValidationError{Field: "ttlSeconds", Code: domain.CodeInvalidField, Msg: "must be positive"}
	}
	return requested, nil
}

// CreateHold returns the hold and the owner token. The token is not stored.
func (m *HoldManager) CreateHold(ctx context.Context, p domain.Principal, in CreateHoldInput) (models.Hold, string, error) {
	if err := domain.RequireRole(p, domain.RoleRider, domain.RoleOperator); err != nil {
		return models.Hold{}, "", err
	}
	seatNumbers := utils.NormalizeSeatNumbers(in.SeatNumbers)
	if err := checkSeatRequest(seatNumbers, m.Config.MaxSeats); err != nil {
		return models.Hold{}, "", err
	}
	ttl, err := m.ttl(in.TTL)
	if err != nil {
		return models.Hold{}, "", err
	}

	now := m.now()
	token, tokenHash := newOwnerToken()
	hold := models.Hold{
		ID:             uuid.NewString(),
		TripID:         in.TripID,
		SeatNumbers:    seatNumbers,
		OwnerID:        p.ID,
		OwnerTokenHash: tokenHash,
		Status:         models.HoldActive,
		ExpiresAt:      now.Add(ttl),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := m.Index.Add(ctx, holdindex.Entry{HoldID: hold.ID, TripID: hold.TripID, ExpiresAt: hold.ExpiresAt}); err != nil {
		return models.Hold{}, "", domain.InternalError{Msg: "could not register hold expiry", Err: err}
	}

	err = m.Store.WithTrip(ctx, in.TripID, func(tx repositories.TripTx) error {
		trip, err := tx.Trip(ctx)
		if err != nil {
			return err
		}
		if trip.Status != models.TripScheduled {
			return domain.InvalidTransitionError{Entity: "trip", Current: string(trip.Status), Action: "hold seats on"}
		}
		if !trip.DepartureAt.After(now) {
			return domain.ValidationError{Field: "tripId", Code: domain.CodeInvalidField, Msg: "trip has already departed"}
		}
		if err := m.Ledger.HoldSeats(ctx, tx, seatNumbers, hold.ID, hold.ExpiresAt); err != nil {
			return err
		}
		return tx.SaveHold(ctx, hold)
	})
	if err != nil {
		m.unindex(ctx, hold.ID)
		if domain.IsSeatUnavailable(err) {
			metrics.HoldConflicts.Inc()
		}
		return models.Hold{}, "", err
	}

	metrics.HoldsCreated.Inc()
	utils.LogEventCtx(ctx, "holds", "create", fmt.Sprintf("hold_id=%s trip_id=%s seats=%d", hold.ID, hold.TripID, len(seatNumbers)))
	return hold, token, nil
}

// Get returns the hold to its owner or to an operator of the trip's company.
func (m *HoldManager) Get(ctx context.Context, p domain.Principal, holdID string) (models.Hold, error) {
	tripID, err := m.Store.LocateHold(ctx, holdID)
	if err != nil {
		return models.Hold{}, err
	}
	var hold models.Hold
	err = m.Store.ViewTrip(ctx, tripID, func(r repositories.TripReader) error {
		trip, err := r.Trip(ctx)
		if err != nil {
			return err
		}
		hold, err = r.Hold(ctx, holdID)
		if err != nil {
			return err
		}
		if hold.OwnerID != p.ID && domain.RequireOperatorOf(p, trip.CompanyID) != nil {
			return domain.AuthorizationError{}
		}
		return nil
	})
	if err != nil {
		return models.Hold{}, err
	}
	return hold, nil
}

// Extend pushes expiresAt forward. A hold never lives past
// CreatedAt+MaxLifetime and is never shortened.
func (m *HoldManager) Extend(ctx context.Context, p domain.Principal, holdID, ownerToken string, ttl time.Duration) (models.Hold, error) {
	ttl, err := m.ttl(ttl)
	if err != nil {
		return models.Hold{}, err
	}
	tripID, err := m.Store.LocateHold(ctx, holdID)
	if err != nil {
		return models.Hold{}, err
	}

	now := m.now()
	var hold models.Hold
	expired := false
	err = m.Store.WithTrip(ctx, tripID, func(tx repositories.TripTx) error {
		hold, err = tx.Hold(ctx, holdID)
		if err != nil {
			return err
		}
		if err := authorizeHolder(p, hold, ownerToken); err != nil {
			return err
		}
		if hold.Status != models.HoldActive {
			return domain.HoldExpired()
		}
		if hold.Expired(now) {
			expired = true
			return m.releaseInTx(ctx, tx, &hold, now)
		}

		until := now.Add(ttl)
		if m.Config.MaxLifetime > 0 {
			if limit := hold.CreatedAt.Add(m.Config.MaxLifetime); until.After(limit) {
				until = limit
			}
		}
		if !until.After(hold.ExpiresAt) {
			return nil
		}
		if err := m.Ledger.ExtendHold(ctx, tx, hold.ID, until); err != nil {
			return err
		}
		hold.ExpiresAt = until
		hold.UpdatedAt = now
		return tx.SaveHold(ctx, hold)
	})
	if err != nil {
		return models.Hold{}, err
	}
	if expired {
		m.forget(ctx, []models.Hold{hold}, ReleaseExpired)
		return models.Hold{}, domain.HoldExpired()
	}

	// A failed update leaves the older, earlier entry; the sweep re-indexes it.
	if err := m.Index.Add(ctx, holdindex.Entry{HoldID: hold.ID, TripID: hold.TripID, ExpiresAt: hold.ExpiresAt}); err != nil {
		utils.LoggerFromContext(ctx).WithError(err).WithField("hold_id", hold.ID).Warn("could not re-index extended hold")
	}
	return hold, nil
}

// Cancel releases the hold's seats. Cancelling a released hold is a no-op.
func (m *HoldManager) Cancel(ctx context.Context, p domain.Principal, holdID, ownerToken string) error {
	tripID, err := m.Store.LocateHold(ctx, holdID)
	if err != nil {
		return err
	}

	var hold models.Hold
	released := false
	err = m.Store.WithTrip(ctx, tripID, func(tx repositories.TripTx) error {
		hold, err = tx.Hold(ctx, holdID)
		if err != nil {
			return err
		}
		if err := authorizeHolder(p, hold, ownerToken); err != nil {
			return err
		}
		switch hold.Status {
		case models.HoldReleased:
			return nil
		case models.HoldConsumed:
			return domain.InvalidTransitionError{Entity: "hold", Current: string(hold.Status), Action: "cancel"}
		}
		released = true
		return m.releaseInTx(ctx, tx, &hold, m.now())
	})
	if err != nil {
		return err
	}
	if released {
		m.forget(ctx, []models.Hold{hold}, ReleaseCancelled)
	}
	return nil
}

// ReleaseTripHolds releases every ACTIVE hold on the trip inside tx. Call
// forget with the result once tx committed.
func (m *HoldManager) ReleaseTripHolds(ctx context.Context, tx repositories.TripTx) ([]models.Hold, error) {
	active, err := tx.ActiveHolds(ctx)
	if err != nil {
		return nil, err
	}
	now := m.now()
	for i := range active {
		if err := m.releaseInTx(ctx, tx, &active[i], now); err != nil {
			return nil, err
		}
	}
	return active, nil
}

// Sweep releases ACTIVE holds whose expiresAt passed. It makes one pass over
// the due part of the index and fixes stale entries on the way.
func (m *HoldManager) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	batch := m.Config.SweepBatch
	if batch <= 0 {
		batch = 100
	}
	now := m.now()
	seen := map[string]struct{}{}
	released := 0

	for {
		due, err := m.Index.Due(ctx, now, batch)
		if err != nil {
			return released, domain.InternalError{Msg: "could not read hold index", Err: err}
		}
		progressed := false
		for _, e := range due {
			if _, ok := seen[e.HoldID]; ok {
				continue
			}
			seen[e.HoldID] = struct{}{}
			progressed = true

			ok, err := m.expireOne(ctx, e, now)
			if err != nil {
				if ctx.Err() != nil {
					return released, ctx.Err()
				}
				utils.LoggerFromContext(ctx).WithError(err).WithField("hold_id", e.HoldID).Error("could not expire hold")
				continue
			}
			if ok {
				released++
			}
		}
		if len(due) < batch || !progressed {
			break
		}
	}
	return released, nil
}

func (m *HoldManager) expireOne(ctx context.Context, e holdindex.Entry, now time.Time) (bool, error) {
	tripID := e.TripID
	if tripID == "" {
		id, err := m.Store.LocateHold(ctx, e.HoldID)
		if domain.IsNotFound(err) {
			m.unindex(ctx, e.HoldID)
			return false, nil
		}
		if err != nil {
			return false, err
		}
		tripID = id
	}

	var hold models.Hold
	stale := false
	released := false
	err := m.Store.WithTrip(ctx, tripID, func(tx repositories.TripTx) error {
		var err error
		hold, err = tx.Hold(ctx, e.HoldID)
		if err != nil {
			return err
		}
		if hold.Status != models.HoldActive {
			stale = true
			return nil
		}
		if !hold.Expired(now) {
			return nil
		}
		released = true
		return m.releaseInTx(ctx, tx, &hold, now)
	})
	switch {
	case domain.IsNotFound(err):
		m.unindex(ctx, e.HoldID)
		return false, nil
	case err != nil:
		return false, err
	case released:
		m.forget(ctx, []models.Hold{hold}, ReleaseExpired)
		return true, nil
	case stale:
		m.unindex(ctx, e.HoldID)
		return false, nil
	default:
		// extended after the entry was written
		if err := m.Index.Add(ctx, holdindex.Entry{HoldID: hold.ID, TripID: hold.TripID, ExpiresAt: hold.ExpiresAt}); err != nil {
			return false, err
		}
		return false, nil
	}
}

// Rebuild loads every ACTIVE hold into the index; run it on start.
func (m *HoldManager) Rebuild(ctx context.Context) (int, error) {
	active, err := m.Store.ListActiveHolds(ctx)
	if err != nil {
		return 0, err
	}
	for _, h := range active {
		if err := m.Index.Add(ctx, holdindex.Entry{HoldID: h.ID, TripID: h.TripID, ExpiresAt: h.ExpiresAt}); err != nil {
			return 0, domain.InternalError{Msg: "could not rebuild hold index", Err: err}
		}
	}
	return len(active), nil
}

// Run sweeps every SweepInterval until ctx is done. It also purges terminal
// holds past Retention and expires unpaid bookings when an Expirer is set.
func (m *HoldManager) Run(ctx context.Context) error {
	interval := m.Config.SweepInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := utils.LoggerFromContext(ctx).WithField("module", "holds")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		m.tick(ctx, logger)
	}
}

func (m *HoldManager) tick(ctx context.Context, logger *logrus.Entry) {
	if n, err := m.Sweep(ctx); err != nil {
		logger.WithError(err).Error("hold sweep failed")
	} else if n > 0 {
		logger.WithField("released", n).Info("expired holds released")
	}

	if m.Config.Retention > 0 {
		if n, err := m.Store.PurgeHolds(ctx, m.now().Add(-m.Config.Retention)); err != nil {
			logger.WithError(err).Error("hold purge failed")
		} else if n > 0 {
			logger.WithField("purged", n).Debug("terminal holds purged")
		}
	}

	if m.Expirer != nil {
		if n, err := m.Expirer.ExpireUnpaid(ctx); err != nil {
			logger.WithError(err).Error("unpaid booking expiry failed")
		} else if n > 0 {
			logger.WithField("expired", n).Info("unpaid bookings expired")
		}
	}
}

func (m *HoldManager) releaseInTx(ctx context.Context, tx repositories.TripTx, hold *models.Hold, now time.Time) error {
	if _, err := m.Ledger.ReleaseHold(ctx, tx, hold.ID); err != nil {
		return err
	}
	hold.Status = models.HoldReleased
	hold.UpdatedAt = now
	return tx.SaveHold(ctx, *hold)
}

// forget drops released holds from the index and announces them.
func (m *HoldManager) forget(ctx context.Context, holds []models.Hold, reason string) {
	evts := make([]any, 0, len(holds))
	for _, h := range holds {
		m.unindex(ctx, h.ID)
		metrics.HoldsReleased.WithLabelValues(reason).Inc()
		evts = append(evts, &events.HoldReleased{
			Header:      events.NewEventHeader(),
			HoldID:      h.ID,
			TripID:      h.TripID,
			SeatNumbers: h.SeatNumbers,
			Reason:      reason,
		})
	}
	publish(ctx, m.Events, evts...)
}

func (m *HoldManager) unindex(ctx context.Context, holdID string) {
	if err := m.Index.Remove(ctx, holdID); err != nil {
		utils.LoggerFromContext(ctx).WithError(err).WithField("hold_id", holdID).Warn("could not remove hold from index")
	}
}

// authorizeHolder checks the owner token, and that the caller is the owner or an operator.
func authorizeHolder(p domain.Principal, hold models.Hold, ownerToken string) error {
	if !ownerTokenMatches(ownerToken, hold.OwnerTokenHash) {
		return domain.AuthorizationError{}
	}
	if p.ID != "" && p.ID != hold.OwnerID && !p.Has(domain.RoleOperator) {
		return domain.AuthorizationError{}
	}
	return nil
}
