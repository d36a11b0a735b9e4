package app

import (
	"context"
	"fmt"
	"time"

	"fs22bot/internal/config"
	"fs22bot/internal/fs22"
	"fs22bot/internal/publisher"
	"fs22bot/internal/stats"
	"fs22bot/internal/storage"
	"fs22bot/internal/transport"
	telegram "fs22bot/internal/transport/telegram/adapter"
	logx "fs22bot/pkg/logx"
)

const restoreTimeout = 10 * time.Second

// Options tune how the app is assembled. Only ConfigPath is required.
type Options struct {
	ConfigPath string
	// Adapter replaces the Telegram adapter built from telegram.token.
	Adapter transport.Adapter
	// Provider replaces the HTTP status feed reader.
	Provider fs22.Provider
}

// New loads the config and assembles every component. Nothing runs until Start.
func New(opts Options) (_ *App, err error) {
	cfgm := config.NewConfigManager(opts.ConfigPath)
	cfgm.SetValidator(config.Validator)
	cfg, err := cfgm.Load(context.Background())
	if err != nil {
		return nil, err
	}

	tset, err := mapTrackerConfig(cfg)
	if err != nil {
		return nil, err
	}
	pset, err := mapPublisherConfig(cfg)
	if err != nil {
		return nil, err
	}
	sset, err := mapStatsConfig(cfg)
	if err != nil {
		return nil, err
	}
	sc, storeEnabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}

	logSvc, root := logx.New(mapLogConfig(cfg))
	log := root.With(logx.String("comp", "app"))
	defer func() {
		if err != nil {
			_ = logSvc.Close()
		}
	}()

	ad := opts.Adapter
	if ad == nil {
		timeout, err := config.ParseDurationOrDefault("telegram.request_timeout", cfg.Telegram.RequestTimeout, defaultReqTimeout)
		if err != nil {
			return nil, err
		}
		tg, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token, RequestTimeout: timeout}, root)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		ad = tg
	}
	logSvc.SetSender(ad)

	agg := stats.NewAggregator(sset.window, stats.WithLocation(sset.loc))

	var store storage.Store
	if storeEnabled {
		store, err = storage.Open(sc, root.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		defer func() {
			if err != nil {
				_ = store.Close()
			}
		}()
		log.Info("storage enabled", logx.String("driver", sc.Driver))
		restoreStats(store, agg, sset.window, log)
	}

	rec, err := stats.NewPlayTimeRecorder(agg, sset.cache)
	if err != nil {
		return nil, err
	}

	provider := opts.Provider
	if provider == nil {
		provider = fs22.NewHTTPProvider(tset.pollTimeout, root)
	}

	a := &App{
		cfgm:     cfgm,
		root:     root,
		log:      log,
		logs:     logSvc,
		adapter:  ad,
		store:    store,
		provider: provider,
		agg:      agg,
		recorder: rec,
		channels: &publisher.Channels{
			Presence:     publisher.NewPresence(ad, pset.opts, root),
			Availability: publisher.NewAvailability(ad, pset.opts, root),
			Panel:        publisher.NewPanel(ad, pset.opts, root),
			Summary:      publisher.NewSummary(ad, pset.cooldown, pset.opts, root),
		},
		reporter: publisher.NewReporter(agg, ad, sset.report, root),
		tracking: tset,
		statsCfg: sset,
	}
	a.autosave = newAutosaver(a.saveStats, root)
	return a, nil
}

// restoreStats loads the persisted window. A broken or missing state starts
// an empty window; the configured window size always wins.
func restoreStats(store storage.Store, agg *stats.Aggregator, window int, log logx.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()

	st, ok, err := store.LoadStats(ctx)
	switch {
	case err != nil:
		log.Warn("stats load failed; starting empty", logx.Err(err))
		return
	case !ok:
		log.Info("no saved stats; starting empty")
		return
	}
	if err := agg.Restore(st); err != nil {
		log.Warn("saved stats rejected; starting empty", logx.Err(err))
		return
	}
	if agg.Window() != window {
		log.Info("stats window resized", logx.Int("from", agg.Window()), logx.Int("to", window))
		agg.Resize(window)
	}
	agg.Advance()
	log.Info("stats restored", logx.Int("window", agg.Window()), logx.Int("players", len(agg.Totals(nil))))
}
