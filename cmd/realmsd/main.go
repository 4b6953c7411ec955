// Command realmsd serves the realm galleries: feeds, uploads, the HTML
// pages and the event stream.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/realms/internal/catalog"
	"github.com/koustreak/realms/internal/config"
	"github.com/koustreak/realms/internal/database"
	"github.com/koustreak/realms/internal/events"
	"github.com/koustreak/realms/internal/feed"
	"github.com/koustreak/realms/internal/logger"
	"github.com/koustreak/realms/internal/realm"
	"github.com/koustreak/realms/internal/render"
	"github.com/koustreak/realms/internal/server"
	"github.com/koustreak/realms/internal/upload"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config: " + err.Error())
	}

	log := logger.New(&cfg.Log)
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.ErrorWith("realmsd stopped", err, nil)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	policies, err := cfg.Policies()
	if err != nil {
		return err
	}

	var repo *catalog.Repository
	if cfg.Database.Enabled() {
		db, err := openDatabase(ctx, &cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = catalog.New(db, cfg.Database.QueryTimeout)
	}

	var store objectStore
	if p := cfg.Backend.StoreProvider(); p != "" {
		if store, err = openStore(ctx, &cfg.Backend, p); err != nil {
			return err
		}
	}

	adapter, err := openAdapter(ctx, &cfg.Backend, store, repo)
	if err != nil {
		return err
	}
	log.InfoWith("backend ready", logger.Fields{
		"provider": cfg.Backend.Provider,
		"store":    cfg.Backend.StoreProvider(),
		"database": cfg.Database.Enabled(),
		"workers":  cfg.Feed.Workers,
	})

	bus := events.NewBroadcaster()
	board := render.NewBoard()
	pipeline := feed.NewPipeline(adapter, policies,
		feed.WithWorkers(cfg.Feed.Workers),
		feed.WithLogger(log.With().Str("component", "feed").Logger()),
	)
	feeds := feed.NewService(pipeline, board,
		feed.WithPublisher(bus),
		feed.WithServiceLogger(log.With().Str("component", "feed-service").Logger()),
	)

	invalidations := bus.Listen()
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		feeds.Watch(ctx, invalidations)
	}()
	go warm(ctx, feeds)

	deps := server.Deps{
		Feeds:    feeds,
		Board:    board,
		Folders:  pipeline,
		Events:   bus,
		Policies: policies,
		Page:     render.NewPage(policies),
		Logger:   log.With().Str("component", "http").Logger(),
	}
	if store != nil && repo != nil {
		deps.Uploads = upload.New(store, repo, policies,
			upload.WithPublisher(bus),
			upload.WithLogger(log.With().Str("component", "upload").Logger()),
		)
	} else {
		log.Info("uploads disabled: needs a minio or s3 store and a database")
	}

	err = server.New(cfg.Server, cfg.Upload, deps).Run(ctx)

	bus.Unlisten(invalidations)
	<-watchDone
	return err
}

// warm loads every realm once so the board has content before the first
// page view.
func warm(ctx context.Context, feeds *feed.Service) {
	for _, id := range realm.All() {
		if ctx.Err() != nil {
			return
		}
		feeds.Reload(ctx, id)
	}
}

func openDatabase(ctx context.Context, cfg *database.Config, log *logger.Logger) (database.DB, error) {
	if cfg.Migrate {
		if err := database.Migrate(cfg); err != nil {
			return nil, err
		}
		log.Info("database migrations applied")
	}
	return openDriver(ctx, cfg)
}
