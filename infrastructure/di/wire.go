//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"songarchive-backend/infrastructure/config"
)

// SuperSet is the main provider set containing all providers.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideRegistry,
	ProvideCacheMetrics,
	ProvideTableClient,
	ProvideSongRepository,
	ProvideEventRepository,
	ProvideTaxonomyRepository,
	ProvideCacheStore,
	ProvideSongPages,
	ProvideEventPages,
	ProvideTaxonomyPages,
	ProvideEventFeed,
	ProvideAggregator,
	ProvideIdentityProvider,
	ProvideSignalPublisher,
	ProvidePushDispatcher,
	ProvideNotifier,
	ProvideObjectStore,
	ProvideErrorHandler,
	ProvideValidator,
	ProvideImporter,
	ProvideSongHandler,
	ProvideEventHandler,
	ProvideTaxonomyHandler,
	ProvideUserHandler,
	ProvideImportHandler,
	ProvideSystemHandler,
	ProvideLegacyRouter,
	ProvideHandlers,
	ProvideRouter,
	ProvideTuningWatcher,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
