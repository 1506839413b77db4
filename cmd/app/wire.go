//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/rent-estimator/internal/bootstrap"
	"github.com/yanqian/rent-estimator/internal/domain/rentform"
	"github.com/yanqian/rent-estimator/internal/infra/config"
	"github.com/yanqian/rent-estimator/internal/infra/predictapi"
	httpiface "github.com/yanqian/rent-estimator/internal/interface/http"
	"github.com/yanqian/rent-estimator/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideFormConfig,
		providePageSettings,
		providePredictClient,
		provideSnapshotStore,
		rentform.NewService,
		wire.Bind(new(rentform.Predictor), new(*predictapi.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
