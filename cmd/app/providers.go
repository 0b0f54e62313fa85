package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
	"github.com/yanqian/tutorials-api/internal/infra/config"
	"github.com/yanqian/tutorials-api/internal/infra/database"
	"github.com/yanqian/tutorials-api/internal/infra/tutorialrepo"
)

// provideCacheDecorator returns nil when the cache is disabled or unreachable;
// tutorials are then served straight from the database.
func provideCacheDecorator(cfg *config.Config, logger *slog.Logger) database.Decorator {
	if !cfg.Cache.Enabled {
		return nil
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		logger.Error("invalid valkey configuration, tutorial cache disabled", "error", err)
		return nil
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, tutorial cache disabled", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, tutorial cache disabled", "error", err)
		client.Close()
		return nil
	}
	logger.Info("tutorial valkey cache enabled", "addr", cfg.Cache.Addr, "ttl", cfg.Cache.TTL)
	return func(repo tutorial.Repository) tutorial.Repository {
		return tutorialrepo.NewCachedRepository(repo, client, cfg.Cache.Prefix, cfg.Cache.TTL, logger)
	}
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Cache.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Cache.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Cache.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
