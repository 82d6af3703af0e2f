package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "bustravel/internal/config"
	"bustravel/internal/events"
	"bustravel/internal/holdindex"
	router "bustravel/internal/http"
	"bustravel/internal/http/handlers"
	"bustravel/internal/repositories"
	"bustravel/internal/repositories/memory"
	"bustravel/internal/services"
	"bustravel/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	env, err := intconfig.LoadEnv()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	utils.ConfigureLogger(env.LogLevel, env.LogFormat)
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, env); err != nil {
		logrus.WithError(err).Fatal("server stopped with error")
	}
	logrus.Info("server stopped cleanly")
}

func run(ctx context.Context, env intconfig.Env) error {
	logger := logrus.NewEntry(logrus.StandardLogger())

	var store repositories.Store
	switch env.Store {
	case "mysql":
		db, err := intconfig.OpenMySQL(ctx, env.MySQLDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := repositories.InitSchema(ctx, db); err != nil {
			return err
		}
		store = repositories.NewMySQLStore(db)
	default:
		logger.Warn("using in-memory store, data is lost on restart")
		store = memory.NewStore()
	}

	wmLogger := events.NewWatermillLogger(logger.WithField("component", "events"))
	var (
		index     holdindex.ExpiryIndex
		transport events.Transport
	)
	if env.RedisAddr != "" {
		rdb, err := intconfig.OpenRedis(ctx, env.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		index = holdindex.NewRedis(rdb, "")
		if transport, err = events.NewRedisTransport(rdb, wmLogger); err != nil {
			return err
		}
	} else {
		index = holdindex.NewHeap()
		transport = events.NewInMemoryTransport(wmLogger)
	}
	defer func() {
		if err := transport.Close(); err != nil {
			logger.WithError(err).Warn("closing event transport")
		}
	}()

	bus, err := events.NewEventBus(transport.Publisher)
	if err != nil {
		return err
	}
	notifications, err := events.NewRouter(transport, events.LogNotifier{Logger: logger.WithField("component", "notifier")}, wmLogger)
	if err != nil {
		return err
	}

	ledger := services.NewSeatLedger(store)
	holds := &services.HoldManager{
		Store:  store,
		Ledger: ledger,
		Index:  index,
		Events: bus,
		Config: services.HoldConfig{
			DefaultTTL:    env.HoldDefaultTTL,
			MaxTTL:        env.HoldMaxTTL,
			MaxLifetime:   env.HoldMaxLifetime,
			MaxSeats:      env.HoldMaxSeats,
			SweepInterval: env.HoldSweepInterval,
			SweepBatch:    env.HoldSweepBatch,
			Retention:     env.HoldRetention,
		},
	}
	bookings := &services.BookingWorkflow{
		Store:  store,
		Ledger: ledger,
		Holds:  holds,
		Events: bus,
		Config: services.BookingConfig{
			CancelLeadTime:  env.BookingCancelLeadTime,
			PaymentDeadline: env.BookingPaymentDeadline,
		},
	}
	holds.Expirer = bookings

	hs := &handlers.Handlers{
		Store:    store,
		Holds:    holds,
		Bookings: bookings,
		Trips:    &services.TripLifecycle{Store: store, Holds: holds, Bookings: bookings, Events: bus},
		Catalog:  &services.TripCatalog{Store: store, Ledger: ledger},
		Revenue:  services.RevenueAggregator{Store: store},
		Docs:     services.TicketDocs{Bookings: bookings},
	}

	n, err := holds.Rebuild(ctx)
	if err != nil {
		return err
	}
	logger.WithField("holds", n).Info("expiry index rebuilt")

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           router.NewRouter(env, hs),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", env.AppAddr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return holds.Run(gctx)
	})
	g.Go(func() error {
		return notifications.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
