package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/limbo/habitsync/internal/api"
	"github.com/limbo/habitsync/internal/feed"
	"github.com/limbo/habitsync/internal/repository"
	"github.com/limbo/habitsync/internal/service"
	"github.com/limbo/habitsync/internal/session"
	"github.com/limbo/habitsync/internal/syncgw"
	"github.com/limbo/habitsync/pkg/cleanup"
	"github.com/limbo/habitsync/pkg/config"
	"github.com/limbo/habitsync/pkg/datekey"
	jwtservice "github.com/limbo/habitsync/pkg/jwt_service"
	"github.com/limbo/habitsync/pkg/logger"
)

func init() {
	service.InitValidator()
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.New()
	lg, err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Prefix: "habitsync",
	})
	if err != nil {
		log.Println("logger setup error: " + err.Error())
		return 1
	}
	defer func() {
		if failed := cleanup.CleanUp(); failed > 0 {
			lg.Warn("some cleanup jobs failed", slog.Int("count", failed))
		}
	}()
	if cfg.JWTSecret == "" {
		lg.Error("JWT_SECRET is required")
		return 1
	}
	keys, err := datekey.NewFromName(cfg.Timezone)
	if err != nil {
		lg.Error("loading date key timezone error", slog.String("error", err.Error()))
		return 1
	}

	dbCfg := repository.PGCfg{
		Address:  cfg.PostgresAddress,
		Username: cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		DB:       cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSLMode,
	}
	if err = repository.Migrate(&dbCfg, cfg.MigrationsDir); err != nil {
		lg.Error("migrations error", slog.String("error", err.Error()))
		return 1
	}
	usersRepo := repository.NewUsersRepo(&dbCfg)
	docsRepo := repository.NewDocumentsRepo(&dbCfg)

	notifier, err := newNotifier(cfg.RedisURL)
	if err != nil {
		lg.Error("change feed error", slog.String("error", err.Error()))
		return 1
	}
	cleanup.Register(&cleanup.Job{Name: "closing change feed", F: notifier.Close})

	var registry *session.Registry
	gateway := syncgw.New(docsRepo, notifier,
		syncgw.WithAppID(cfg.AppID),
		syncgw.WithLogger(lg),
		syncgw.WithWriteQueue(cfg.WriteQueue),
		syncgw.WithWriteErrorHook(func(identity string, err error) {
			if registry != nil {
				registry.ReportWriteFailure(identity, err)
			}
		}),
	)
	registry = session.NewRegistry(gateway,
		session.WithKeys(keys),
		session.WithLogger(lg),
	)
	cleanup.Register(&cleanup.Job{
		Name: "flushing sync gateway",
		F: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return gateway.Close(ctx)
		},
	})
	cleanup.Register(&cleanup.Job{
		Name: "closing sessions",
		F: func() error {
			registry.Close()
			return nil
		},
	})

	serv := api.New(&api.ServicesList{
		UserService:   service.NewUserService(usersRepo),
		HabitsService: service.NewHabitsService(registry),
		JwtService:    jwtservice.New(cfg.JWTSecret, cfg.TokenTTL),
		Keys:          keys,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go registry.RunEviction(ctx, cfg.SessionIdleTTL)
	if err = serv.Run(ctx, cfg.APIAddress); err != nil {
		lg.Error("server error", slog.String("error", err.Error()))
		return 1
	}
	lg.Info("server stopped")
	return 0
}

func newNotifier(redisURL string) (feed.Notifier, error) {
	if redisURL == "" {
		slog.Info("REDIS_URL is empty, using in-process change feed")
		return feed.NewMemoryFeed(), nil
	}
	return feed.NewRedisFeed(redisURL)
}
