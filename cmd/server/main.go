package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/openmeet/openmeet-api/internal/api"
	"github.com/openmeet/openmeet-api/internal/api/handler"
	"github.com/openmeet/openmeet-api/internal/core/ports"
	"github.com/openmeet/openmeet-api/internal/core/service"
	"github.com/openmeet/openmeet-api/internal/infrastructure/db/cassandra"
	"github.com/openmeet/openmeet-api/internal/infrastructure/db/redis"
	"github.com/openmeet/openmeet-api/internal/infrastructure/queue"
	"github.com/openmeet/openmeet-api/internal/pkg/config"
	"github.com/openmeet/openmeet-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title                       OpenMeet API
// @version                     1.0
// @description                 Users, email lookup and group events over Cassandra.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx))
}

func run(ctx context.Context) int {
	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger is not configured yet; fall back to zerolog defaults.
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Error().Err(err).Msg("failed to load configuration")
		return 1
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "openmeet-api",
	})

	pool, err := cassandra.NewPool(cfg.Pool(), cassandra.NewClusterConnector(cfg.Pool()), log)
	if err != nil {
		log.Error().Err(err).Msg("invalid session pool configuration")
		return 1
	}
	defer pool.Close()

	if cfg.Cassandra.EnsureSchema {
		if err := cassandra.EnsureSchema(ctx, pool); err != nil {
			log.Error().Err(err).Msg("failed to ensure schema")
			return 1
		}
		log.Info().Str("keyspace", cfg.Cassandra.Keyspace).Msg("schema ensured")
	}

	readiness := map[string]handler.Pinger{"cassandra": pool}

	// Reservations are optional. The reserver stays a nil interface when
	// Redis is not configured.
	var reserver ports.EmailReserver
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Error().Err(err).Msg("failed to connect to redis")
			return 1
		}
		defer rdb.Close()

		reservations := redis.NewEmailReservations(rdb, cfg.Redis.ReservationTTL)
		reserver = reservations
		readiness["redis"] = reservations
		log.Info().Str("addr", cfg.Redis.Addr).Msg("email reservations enabled")
	}

	creds := service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	users := cassandra.NewUserRepository(pool, creds, reserver, log)
	events := cassandra.NewEventRepository(pool, log)

	repairs := queue.NewRepairDispatcher(cfg.RepairWorkers, users, log)

	e := api.NewRouter(api.Deps{
		Users:     users,
		Events:    events,
		Repairs:   repairs,
		Readiness: readiness,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})

	g, gCtx := errgroup.WithContext(ctx)

	repairs.Start(gCtx)

	g.Go(func() error {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Int("pool_size", cfg.Cassandra.PoolSize).
			Msg("starting http server")
		return e.Start(":" + cfg.Port)
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return e.Shutdown(shutCtx)
	})

	err = g.Wait()
	repairs.Wait()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("http server stopped with error")
		return 1
	}

	stats := pool.Stats()
	log.Info().Int("open_sessions", stats.Open).Msg("http server stopped")
	return 0
}
