package main

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/charmbracelet/readaloud/internal/cache"
	"github.com/charmbracelet/readaloud/internal/settings"
)

func settingsPath(o options) (string, error) {
	if o.SettingsPath != "" {
		return cache.ExpandPath(o.SettingsPath)
	}
	return settings.DefaultPath()
}

func openSettings(ctx context.Context, o options) (settings.Store, error) {
	if o.Ephemeral {
		return settings.NewMemory(settings.Settings{}), nil
	}
	path, err := settingsPath(o)
	if err != nil {
		return nil, err
	}
	return settings.OpenSQLite(ctx, path)
}

func cacheConfig(o options) (cache.Config, error) {
	cfg := cache.DefaultConfig()
	cfg.MemoryCapacity = int64(o.CacheMemoryMB) << 20
	cfg.DiskCapacity = int64(o.CacheDiskMB) << 20
	cfg.TTL = time.Duration(o.CacheTTLDays) * 24 * time.Hour

	dir := o.CacheDir
	if dir == "" {
		d, err := cache.DefaultDir()
		if err != nil {
			return cfg, err
		}
		dir = d
	}
	dir, err := cache.ExpandPath(dir)
	if err != nil {
		return cfg, err
	}
	cfg.DiskPath = dir
	return cfg, nil
}

func openCache(o options, logger *log.Logger) (*cache.Manager, error) {
	cfg, err := cacheConfig(o)
	if err != nil {
		return nil, err
	}
	return cache.NewManager(cfg, logger)
}
