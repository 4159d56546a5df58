package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"volumetracker/config"
	"volumetracker/internal/api"
	"volumetracker/internal/tracker"
	"volumetracker/pkg/sina"
	"volumetracker/pkg/storage"

	"go.uber.org/zap"
)

// App holds the constructed tracker and everything around it. Build it with
// New and release it with Close.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	loc    *time.Location
	clock  tracker.Clock

	Store   storage.Store
	Tracker *tracker.Tracker
}

// New wires the provider client, store and tracker. The combined data file is
// always published after each cycle.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	loc, err := cfg.Tracker.Location()
	if err != nil {
		return nil, err
	}
	clock := tracker.SystemClock(loc)

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return newWithStore(cfg, logger, store, sina.NewRESTClient(cfg.Provider.BaseURL, cfg.Provider.Timeout).
		WithPageSize(cfg.Provider.PageSize).
		WithLogger(logger.Named("sina")), clock, loc), nil
}

func newWithStore(cfg *config.Config, logger *zap.Logger, store storage.Store, provider tracker.Provider, clock tracker.Clock, loc *time.Location) *App {
	fetcher := tracker.NewFetcher(provider, cfg.Provider.SHCode, cfg.Provider.SZCode, cfg.Provider.Timeout, clock)

	var publishers []tracker.Publisher
	if cfg.Tracker.CurrentDataFile != "" {
		publishers = append(publishers, tracker.FilePublisher{Path: cfg.Tracker.CurrentDataFile})
	}

	t := tracker.New(store, fetcher, tracker.Options{
		CloseHour:  cfg.Tracker.CloseHour,
		Clock:      clock,
		Publishers: publishers,
	}, logger)

	return &App{
		cfg:     cfg,
		logger:  logger,
		loc:     loc,
		clock:   clock,
		Store:   store,
		Tracker: t,
	}
}

// RunOnce runs a single cycle.
func (a *App) RunOnce(ctx context.Context) error {
	return a.Tracker.RunCycle(ctx)
}

// RunScheduler runs the update loop until ctx is cancelled.
func (a *App) RunScheduler(ctx context.Context) error {
	stopRetention, err := a.startRetention()
	if err != nil {
		return err
	}
	defer stopRetention()

	return a.scheduler().Run(ctx)
}

// Serve runs the update loop, the HTTP read API and the websocket feed until
// ctx is cancelled or the server fails, then shuts everything down.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopRetention, err := a.startRetention()
	if err != nil {
		return err
	}
	defer stopRetention()

	feed := api.NewFeed(a.logger.Named("feed"))
	a.Tracker.AddPublisher(feed)
	go feed.Run(ctx)

	server := api.NewServer(a.cfg.Server, a.Tracker, feed, a.logger.Named("http"))
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	done := a.scheduler().Start(ctx)

	select {
	case <-ctx.Done():
	case err = <-serverErr:
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		a.logger.Warn("http shutdown", zap.Error(serr))
	}

	<-done
	return err
}

func (a *App) scheduler() *tracker.Scheduler {
	return tracker.NewScheduler(a.Tracker.RunCycle, tracker.SchedulerConfig{
		Interval:      a.cfg.Tracker.Interval,
		RetryInterval: a.cfg.Tracker.RetryInterval,
	}, a.logger.Named("scheduler"))
}

func (a *App) startRetention() (func(), error) {
	if a.cfg.Tracker.RetentionDays <= 0 {
		return func() {}, nil
	}

	r := tracker.NewRetention(a.Store, a.cfg.Tracker.RetentionDays, a.clock, a.logger.Named("retention"))
	if err := r.Start(a.loc, a.cfg.Tracker.RetentionAt); err != nil {
		return nil, fmt.Errorf("start retention: %w", err)
	}
	a.logger.Info("retention enabled",
		zap.Int("days", a.cfg.Tracker.RetentionDays),
		zap.String("at", a.cfg.Tracker.RetentionAt),
	)
	return r.Stop, nil
}

func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	if err := a.Store.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
