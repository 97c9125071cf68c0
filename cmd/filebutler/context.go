package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"filebutler/internal/config"
	"filebutler/internal/exclusions"
	"filebutler/internal/index"
	"filebutler/internal/logging"
	"filebutler/internal/notifications"
	"filebutler/internal/services/planner"
	"filebutler/internal/watcher"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime bundles the assembled components behind the watch and organize
// commands. Close releases the index database.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *index.Store
	oracle    *exclusions.Oracle
	watcher   *watcher.Watcher
	watchlist *watcher.Watchlist
}

func (r *runtime) Close() {
	if r.store != nil {
		_ = r.store.Close()
	}
}

// buildRuntime wires the index store, exclusion oracle, planner, and
// notifier into a watcher, then applies the persisted folder list.
func (c *commandContext) buildRuntime(events watcher.Events) (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := index.Open(cfg)
	if err != nil {
		return nil, err
	}
	oracle, err := exclusions.New(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	plannerSvc := planner.NewService(cfg, logger)
	notifier := notifications.NewService(cfg)
	w := watcher.New(cfg, store, plannerSvc, oracle, notifier, events, logger)

	list, err := watcher.LoadWatchlist(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	for _, applyErr := range list.Apply(w) {
		logger.Warn("skipping persisted folder", logging.Error(applyErr))
	}

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		oracle:    oracle,
		watcher:   w,
		watchlist: list,
	}, nil
}

func (c *commandContext) watchlist() (*watcher.Watchlist, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return watcher.LoadWatchlist(cfg)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
