package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/limbo/habitsync/internal/feed"
	"github.com/limbo/habitsync/internal/repository"
	"github.com/limbo/habitsync/internal/session"
	"github.com/limbo/habitsync/internal/syncgw"
	"github.com/limbo/habitsync/pkg/cleanup"
	"github.com/limbo/habitsync/pkg/config"
	"github.com/limbo/habitsync/pkg/datekey"
	"github.com/limbo/habitsync/pkg/logger"
)

var CLI struct {
	Debug bool `help:"Log debug output to stderr."`

	Seed   SeedCmd   `cmd:"" help:"Create the identity's document with the default habits if it is missing."`
	Show   ShowCmd   `cmd:"" help:"Print the stored document of an identity."`
	Stats  StatsCmd  `cmd:"" help:"Print the month overview of an identity."`
	Add    AddCmd    `cmd:"" help:"Add a habit, asking for its name."`
	Toggle ToggleCmd `cmd:"" help:"Toggle a habit on a day."`
	Delete DeleteCmd `cmd:"" help:"Delete a habit with its history after confirmation."`
	Export ExportCmd `cmd:"" help:"Write the backup file of an identity."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("habitctl"),
		kong.Description("Inspect and edit synced habit documents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	appCtx, err := newAppContext(CLI.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	err = kctx.Run(appCtx)
	appCtx.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type appContext struct {
	ctx      context.Context
	docs     repository.DocumentsRepositoryI
	gateway  *syncgw.Gateway
	registry *session.Registry
	keys     *datekey.Normalizer
	appID    string
	now      func() time.Time
	ui       *terminal
	out      *os.File
}

func newAppContext(debug bool) (*appContext, error) {
	cfg := config.New()
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	lg, err := logger.Init(logger.Config{Level: level, Format: cfg.LogFormat, File: cfg.LogFile, Prefix: "habitctl"})
	if err != nil {
		return nil, err
	}
	keys, err := datekey.NewFromName(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	dbCfg := repository.PGCfg{
		Address:  cfg.PostgresAddress,
		Username: cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		DB:       cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSLMode,
	}
	pool, err := repository.Connect(context.Background(), &dbCfg)
	if err != nil {
		return nil, err
	}
	docs := repository.NewDocumentsRepoWithConn(pool)
	// in-process unless REDIS_URL is set, so running services see our pushes
	var notifier feed.Notifier = feed.NewMemoryFeed()
	if cfg.RedisURL != "" {
		if notifier, err = feed.NewRedisFeed(cfg.RedisURL); err != nil {
			return nil, err
		}
	}
	cleanup.Register(&cleanup.Job{Name: "closing change feed", F: notifier.Close})
	gateway := syncgw.New(docs, notifier,
		syncgw.WithAppID(cfg.AppID),
		syncgw.WithLogger(lg),
		syncgw.WithWriteQueue(true),
	)
	return &appContext{
		ctx:      context.Background(),
		docs:     docs,
		gateway:  gateway,
		registry: session.NewRegistry(gateway, session.WithKeys(keys), session.WithLogger(lg)),
		keys:     keys,
		appID:    cfg.AppID,
		now:      time.Now,
		ui:       newTerminal(os.Stdin, os.Stdout),
		out:      os.Stdout,
	}, nil
}

// close flushes pending writes before releasing connections.
func (a *appContext) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.registry.Close()
	if err := a.gateway.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cleanup.CleanUp()
}
