package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/rent-estimator/internal/domain/rentform"
	"github.com/yanqian/rent-estimator/internal/infra/config"
	"github.com/yanqian/rent-estimator/internal/infra/predictapi"
	"github.com/yanqian/rent-estimator/internal/infra/viewstore"
	httpiface "github.com/yanqian/rent-estimator/internal/interface/http"
)

func provideFormConfig(cfg *config.Config) rentform.Config {
	return rentform.Config{
		PreserveOnFailure: cfg.Form.PreserveOnFailure,
		IdleTTL:           cfg.Views.IdleTTL,
		Currency:          cfg.Page.Currency,
	}
}

func providePageSettings(cfg *config.Config) httpiface.PageSettings {
	return httpiface.PageSettings{
		Title:    cfg.Page.Title,
		Currency: cfg.Page.Currency,
	}
}

func providePredictClient(cfg *config.Config, logger *slog.Logger) *predictapi.Client {
	return predictapi.NewClient(cfg.Predictor.Endpoint, cfg.Predictor.Timeout, logger)
}

// provideSnapshotStore returns nil unless the valkey store is selected and
// reachable. Without a store, views live only in process memory.
func provideSnapshotStore(cfg *config.Config, logger *slog.Logger) rentform.SnapshotStore {
	if cfg.Views.Store != config.StoreValkey {
		return nil
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		logger.Error("invalid valkey configuration, views will not survive a restart", "error", err)
		return nil
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, views will not survive a restart", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, views will not survive a restart", "error", err)
		client.Close()
		return nil
	}
	logger.Info("view valkey store enabled", "addr", cfg.Views.Redis.Addr)
	return viewstore.NewValkeyStore(client, cfg.Views.Redis.Prefix)
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Views.Redis.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Views.Redis.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Views.Redis.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
