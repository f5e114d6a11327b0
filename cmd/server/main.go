// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/teamskills/teamskills/internal/audit"
	"github.com/teamskills/teamskills/internal/config"
	"github.com/teamskills/teamskills/internal/identity"
	"github.com/teamskills/teamskills/internal/observability/logger"
	"github.com/teamskills/teamskills/internal/observability/metrics"
	"github.com/teamskills/teamskills/internal/observability/tracing"
	"github.com/teamskills/teamskills/internal/operation"
	"github.com/teamskills/teamskills/internal/permission"
	"github.com/teamskills/teamskills/internal/store/memory"
	"github.com/teamskills/teamskills/internal/store/postgres"
	"github.com/teamskills/teamskills/internal/team"
	transportHTTP "github.com/teamskills/teamskills/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.Observability.ServiceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cmd string
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "migrate":
		err = runMigrate(ctx, cfg)
	case "bootstrap":
		err = runBootstrap(ctx, cfg)
	case "", "serve":
		err = runServer(ctx, cfg)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		slog.Error("teamskills exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// repositories bundles the storage backends selected by STORE_DRIVER.
type repositories struct {
	users       identity.UserRepository
	permissions permission.Repository
	teams       team.Repository
	close       func()
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.Store.Driver == config.DriverMemory {
		slog.Warn("using in-memory store, data is lost on restart")
		store := memory.New()
		return &repositories{
			users:       memory.NewUserRepository(store),
			permissions: memory.NewPermissionRepository(store),
			teams:       memory.NewTeamRepository(store),
			close:       func() {},
		}, nil
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoSchema {
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	slog.Info("connected to database")

	return &repositories{
		users:       postgres.NewUserRepository(db),
		permissions: postgres.NewPermissionRepository(db),
		teams:       postgres.NewTeamRepository(db),
		close:       db.Close,
	}, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.New(ctx, postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// services wires the domain services over repos.
type services struct {
	identity    *identity.Service
	permissions *permission.Service
	teams       *team.Service
	bootstrap   *identity.BootstrapService
}

func newServices(cfg *config.Config, repos *repositories, runner *operation.Runner) *services {
	auditLogger := audit.NewSlogLogger(slog.Default())
	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Memory,
		cfg.Security.Iterations,
		cfg.Security.Parallelism,
		cfg.Security.SaltLength,
		cfg.Security.KeyLength,
	)

	permissionService := permission.NewService(repos.permissions, runner, auditLogger)
	resolver := permissionService.Resolver()
	identityService := identity.NewService(repos.users, passwordHasher, resolver, runner, auditLogger)
	teamService := team.NewService(repos.teams, team.NewAuthorizer(repos.teams, resolver), runner, auditLogger)

	return &services{
		identity:    identityService,
		permissions: permissionService,
		teams:       teamService,
		bootstrap:   identity.NewBootstrapService(identityService, repos.permissions, auditLogger),
	}
}

func bootstrapConfig(cfg *config.Config) identity.BootstrapConfig {
	return identity.BootstrapConfig{
		Username: cfg.Bootstrap.Username,
		Email:    cfg.Bootstrap.Email,
		Password: cfg.Bootstrap.Password,
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting teamskills", logger.Component("server"))

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.Enabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   cfg.Observability.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer tracer.Shutdown(context.WithoutCancel(ctx))

	meter := metrics.New(metrics.Config{
		Enabled:     cfg.Observability.Enabled,
		ServiceName: cfg.Observability.ServiceName,
	})
	outcomes, err := meter.Operations()
	if err != nil {
		return fmt.Errorf("failed to create operations counter: %w", err)
	}
	requestDuration, err := meter.RequestDuration()
	if err != nil {
		return fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	svc := newServices(cfg, repos, operation.NewRunner(tracer.GetTracer(), outcomes))

	// An unset bootstrap user is a no-op; failures are not fatal for a running system.
	if _, err := svc.bootstrap.Bootstrap(ctx, bootstrapConfig(cfg)); err != nil {
		slog.Error("bootstrap failed", logger.Error(err))
	}

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	handler := transportHTTP.NewHandler(svc.identity, svc.permissions, svc.teams)
	router := transportHTTP.NewRouter(handler, rateLimiter, cfg.Server.RequestTimeout)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      transportHTTP.MetricsMiddleware(requestDuration)(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rateLimiter.Run(gctx)
	})

	g.Go(func() error {
		slog.Info("listening", logger.Component("server"), logger.Operation("listen"), slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("applying schema")
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}
	slog.Info("schema applied")
	return nil
}

func runBootstrap(ctx context.Context, cfg *config.Config) error {
	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	svc := newServices(cfg, repos, operation.NewRunner(nil, nil))
	user, err := svc.bootstrap.Bootstrap(ctx, bootstrapConfig(cfg))
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("BOOTSTRAP_ADMIN_USERNAME is not set")
	}
	return nil
}
