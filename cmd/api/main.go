// @title           Task Tracker API
// @version         1.0
// @description     Task tracking with role-based access and a derived task lifecycle.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tasktracker/task-system/internal/api"
	"github.com/tasktracker/task-system/internal/core/ports"
	"github.com/tasktracker/task-system/internal/core/service"
	mongostore "github.com/tasktracker/task-system/internal/infrastructure/db/mongo"
	redisstore "github.com/tasktracker/task-system/internal/infrastructure/db/redis"
	"github.com/tasktracker/task-system/internal/infrastructure/db/sqlstore"
	"github.com/tasktracker/task-system/internal/infrastructure/http/handlers"
	"github.com/tasktracker/task-system/internal/pkg/clock"
	"github.com/tasktracker/task-system/internal/pkg/config"
	"github.com/tasktracker/task-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg := logger.Init(logger.Options{
		Level: cfg.LogLevel,
		Env:   cfg.Env,
	})

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal().Err(err).Msg("server stopped")
	}
}

// stores groups the persistence adapters selected by configuration.
type stores struct {
	users     ports.UserRepository
	tasks     ports.TaskRepository
	readiness []handlers.Dependency
	closers   []func(context.Context) error
}

func (s *stores) close(ctx context.Context, lg zerolog.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			lg.Warn().Err(err).Msg("close store")
		}
	}
}

func run(ctx context.Context, cfg *config.Config, lg zerolog.Logger) error {
	st, err := openStores(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		st.close(closeCtx, lg)
	}()

	var idem ports.IdempotencyStore
	if cfg.Redis.Addr != "" {
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		st.closers = append(st.closers, func(context.Context) error { return client.Close() })
		st.readiness = append(st.readiness, handlers.Dependency{Name: "redis", Pinger: redisstore.NewPinger(client)})
		idem = redisstore.NewIdempotencyStore(client, cfg.Redis.IdempotencyTTL)
		lg.Info().Str("addr", cfg.Redis.Addr).Msg("idempotency store enabled")
	}

	clk := clock.System()
	tokens, err := service.NewTokenCodec(service.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		TTL:    cfg.Auth.JWTTTL,
		Issuer: cfg.Auth.JWTIssuer,
	}, clk)
	if err != nil {
		return err
	}

	authSvc, err := service.NewAuthService(st.users, service.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, lg)
	if err != nil {
		return err
	}
	taskSvc := service.NewTaskService(st.tasks, st.users, tokens, idem, clk, lg)

	seeder := service.NewSeeder(authSvc, st.tasks, logger.Component("seed"))
	if cfg.Seed.AdminUsername != "" {
		if _, err := seeder.EnsureAdmin(ctx, cfg.Seed.AdminUsername, cfg.Seed.AdminPassword); err != nil {
			return err
		}
	}
	if cfg.Seed.DemoData {
		if !cfg.IsDevelopment() {
			lg.Warn().Str("env", cfg.Env).Msg("seeding demo credentials outside development")
		}
		if err := seeder.SeedDemoData(ctx); err != nil {
			return err
		}
	}

	router := api.NewRouter(api.Dependencies{
		Auth:      authSvc,
		Tasks:     taskSvc,
		Tokens:    tokens,
		Readiness: st.readiness,
		Logger:    logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Driver).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	lg.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, lg zerolog.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := sqlstore.Open(sqlstore.Config{Path: cfg.SQL.Path})
		if err != nil {
			return nil, err
		}
		lg.Info().Str("path", cfg.SQL.Path).Msg("sqlite store opened")
		return &stores{
			users:     sqlstore.NewUserRepository(db),
			tasks:     sqlstore.NewTaskRepository(db),
			readiness: []handlers.Dependency{{Name: "sqlite", Pinger: sqlstore.NewPinger(db)}},
			closers:   []func(context.Context) error{func(context.Context) error { return sqlstore.Close(db) }},
		}, nil

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		users := mongostore.NewUserRepository(db)
		tasks := mongostore.NewTaskRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		if err := tasks.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		lg.Info().Str("database", cfg.Mongo.Database).Msg("mongo store connected")
		return &stores{
			users:     users,
			tasks:     tasks,
			readiness: []handlers.Dependency{{Name: "mongodb", Pinger: mongostore.NewPinger(client)}},
			closers:   []func(context.Context) error{client.Disconnect},
		}, nil
	}
}
