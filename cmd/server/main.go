package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srivastavahk/TaskFlow/api"
	"github.com/srivastavahk/TaskFlow/config"
	"github.com/srivastavahk/TaskFlow/internal/email"
	"github.com/srivastavahk/TaskFlow/internal/health"
	"github.com/srivastavahk/TaskFlow/internal/infrastructure/memory"
	"github.com/srivastavahk/TaskFlow/internal/infrastructure/postgres"
	ctxlog "github.com/srivastavahk/TaskFlow/internal/log"
	"github.com/srivastavahk/TaskFlow/internal/metrics"
	"github.com/srivastavahk/TaskFlow/internal/ratelimit"
	"github.com/srivastavahk/TaskFlow/internal/repository"
	"github.com/srivastavahk/TaskFlow/internal/sweeper"
	"github.com/srivastavahk/TaskFlow/internal/token"
	httptransport "github.com/srivastavahk/TaskFlow/internal/transport/http"
	"github.com/srivastavahk/TaskFlow/internal/transport/http/handler"
	"github.com/srivastavahk/TaskFlow/internal/usecase"
)

type stores struct {
	users       repository.UserRepository
	teams       repository.TeamRepository
	members     repository.MembershipRepository
	invitations repository.InvitationRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var (
		st   stores
		deps []health.Dependency
	)
	if cfg.UseMemoryStore() {
		mem := memory.NewStore()
		st = stores{mem.Users(), mem.Teams(), mem.Memberships(), mem.Invitations()}
		deps = append(deps, health.Dependency{Name: "memory", Pinger: mem})
		logger.Warn("DATABASE_URL not set, using in-memory store; data is lost on restart")

		// no separate sweeper process can reach this store
		sw := sweeper.New(st.invitations, logger, cfg.InviteRetention)
		go func() {
			if err := sw.Start(ctx, cfg.InviteSweepSchedule); err != nil {
				logger.Error("sweeper", "error", err)
			}
		}()
	} else {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			stop()
			log.Fatalf("db: %v", err)
		}
		defer pool.Close()

		if err := postgres.ApplySchema(ctx, pool); err != nil {
			stop()
			log.Fatalf("db: %v", err)
		}
		st = stores{
			postgres.NewUserRepository(pool),
			postgres.NewTeamRepository(pool),
			postgres.NewMembershipRepository(pool),
			postgres.NewInvitationRepository(pool),
		}
		deps = append(deps, health.Dependency{Name: "postgres", Pinger: pool})
	}

	opts := httptransport.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HSTS:               cfg.Env != "local",
		LoginRateLimit:     cfg.LoginRateLimit,
		LoginRateWindow:    cfg.LoginRateWindow,
	}
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			stop()
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()

		opts.Limiter = ratelimit.NewRedisLimiter(rdb)
		deps = append(deps, health.Dependency{
			Name:   "redis",
			Pinger: health.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		})
	}

	tokens, err := token.New(cfg.JWTKey())
	if err != nil {
		stop()
		log.Fatalf("token: %v", err)
	}

	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)

	guard := usecase.NewGuard(st.teams, st.members)
	authUsecase := usecase.NewAuthUsecase(st.users, tokens, usecase.AuthConfig{
		AccessTTL:  cfg.AccessTokenTTL(),
		RefreshTTL: cfg.RefreshTokenTTL(),
		BcryptCost: cfg.BcryptCost,
	})
	teamUsecase := usecase.NewTeamUsecase(guard, st.teams, st.members)
	invitationUsecase := usecase.NewInvitationUsecase(
		guard, st.users, st.teams, st.members, st.invitations,
		sender, cfg.InviteLinkBaseURL, logger,
	)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer, deps...)

	router := httptransport.NewRouter(logger, tokens, st.users, httptransport.Handlers{
		Auth:    handler.NewAuthHandler(authUsecase, logger),
		Team:    handler.NewTeamHandler(teamUsecase, invitationUsecase, logger),
		Health:  handler.NewHealthHandler(checker),
		OpenAPI: handler.NewOpenAPIHandler(api.OpenAPISpec, logger),
	}, opts)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
