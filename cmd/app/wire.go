//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/tutorials-api/internal/bootstrap"
	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
	"github.com/yanqian/tutorials-api/internal/infra/config"
	"github.com/yanqian/tutorials-api/internal/infra/database"
	"github.com/yanqian/tutorials-api/internal/infra/tutorialrepo"
	httpiface "github.com/yanqian/tutorials-api/internal/interface/http"
	"github.com/yanqian/tutorials-api/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideCacheDecorator,
		database.NewConnector,
		tutorialrepo.NewDeferredRepository,
		tutorial.NewService,
		wire.Bind(new(tutorial.Repository), new(*tutorialrepo.DeferredRepository)),
		wire.Bind(new(httpiface.DatabaseStatus), new(*database.Connector)),
		httpiface.NewTutorialHandler,
		httpiface.NewHealthHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
