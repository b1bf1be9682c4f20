// Package di wires the application together. Providers are consumed by wire
// to generate InitializeContainer.
package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"songarchive-backend/application/aggregation"
	"songarchive-backend/application/importer"
	"songarchive-backend/application/pagination"
	"songarchive-backend/application/ports"
	"songarchive-backend/application/taxonomy"
	"songarchive-backend/domain"
	"songarchive-backend/infrastructure/config"
	"songarchive-backend/infrastructure/external/heritagefeed"
	"songarchive-backend/infrastructure/identity"
	"songarchive-backend/infrastructure/notification"
	ddb "songarchive-backend/infrastructure/persistence/dynamodb"
	"songarchive-backend/infrastructure/storage"
	"songarchive-backend/interfaces/http/rest"
	"songarchive-backend/interfaces/http/rest/handlers"
	v1 "songarchive-backend/interfaces/http/rest/v1"
	"songarchive-backend/pkg/auth"
	"songarchive-backend/pkg/cache"
	"songarchive-backend/pkg/common"
	apperrors "songarchive-backend/pkg/errors"
	"songarchive-backend/pkg/observability"
)

// TaxonomyManagers maps each taxonomy category to its pagination manager.
type TaxonomyManagers map[domain.TaxonomyCategory]*pagination.Manager[domain.TaxonomyEntry]

// LegacyHandler is the mounted /api/v1 surface, typed apart from the main
// router so wire can tell them apart.
type LegacyHandler http.Handler

// Container holds all application dependencies.
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Store         *cache.Store
	Metrics       *observability.CacheMetrics
	Registry      *prometheus.Registry
	SongPages     *pagination.Manager[domain.Song]
	EventPages    *pagination.Manager[domain.Event]
	TaxonomyPages TaxonomyManagers
	Aggregator    *aggregation.Service
	Identity      ports.IdentityProvider
	Push          ports.PushDispatcher
	Tuning        *config.TuningWatcher
	Router        http.Handler
}

const (
	sweepInterval      = 5 * time.Minute
	sessionPruneEvery  = 10 * time.Minute
	sessionIdleTimeout = 30 * time.Minute
)

// StartMaintenance launches the background upkeep: the cache sweeper, the
// tuning watcher and the idle session pruner. All stop when ctx is canceled.
func (c *Container) StartMaintenance(ctx context.Context) {
	c.Store.StartSweeper(ctx, sweepInterval)
	if c.Tuning != nil {
		c.Tuning.Start()
	}
	go c.pruneSessions(ctx)
}

func (c *Container) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPruneEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := c.SongPages.PruneIdle(sessionIdleTimeout)
			removed += c.EventPages.PruneIdle(sessionIdleTimeout)
			for _, m := range c.TaxonomyPages {
				removed += m.PruneIdle(sessionIdleTimeout)
			}
			if removed > 0 {
				c.Logger.Debug("Pruned idle pagination sessions", zap.Int("count", removed))
			}
		}
	}
}

// Shutdown releases resources that outlive request handling.
func (c *Container) Shutdown() {
	if c.Tuning != nil {
		c.Tuning.Stop()
	}
	_ = c.Logger.Sync()
}

// ProvideLogger creates a new logger instance.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client.
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client.
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client for the Lambda
// deployment, where no Prometheus scrape target exists. Elsewhere metric
// mirroring stays off.
func ProvideCloudWatchClient(awsCfg aws.Config, cfg *config.Config) *awscloudwatch.Client {
	if !cfg.IsLambda || !cfg.EnableMetrics {
		return nil
	}
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideRegistry creates the Prometheus registry, or nil when metrics are
// disabled.
func ProvideRegistry(cfg *config.Config) *prometheus.Registry {
	if !cfg.EnableMetrics {
		return nil
	}
	return prometheus.NewRegistry()
}

// ProvideCacheMetrics creates the cache metrics instance.
func ProvideCacheMetrics(registry *prometheus.Registry, cfg *config.Config, cw *awscloudwatch.Client, logger *zap.Logger) *observability.CacheMetrics {
	var reg prometheus.Registerer
	if registry != nil {
		reg = registry
	}
	namespace := fmt.Sprintf("SongArchive/%s", cfg.Environment)
	return observability.NewCacheMetrics(reg, namespace, cw, logger)
}

// ProvideTableClient creates the shared table access layer.
func ProvideTableClient(db *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *ddb.Client {
	return ddb.NewClient(db, cfg.DynamoDBTable, cfg.GSI1IndexName, cfg.GSI2IndexName, logger)
}

// ProvideSongRepository creates the song repository.
func ProvideSongRepository(client *ddb.Client, logger *zap.Logger) ports.SongRepository {
	return ddb.NewSongRepository(client, logger)
}

// ProvideEventRepository creates the archive event repository.
func ProvideEventRepository(client *ddb.Client, logger *zap.Logger) ports.EventRepository {
	return ddb.NewEventRepository(client, logger)
}

// ProvideTaxonomyRepository creates the taxonomy repository.
func ProvideTaxonomyRepository(client *ddb.Client, logger *zap.Logger) ports.TaxonomyRepository {
	return ddb.NewTaxonomyRepository(client, logger)
}

// ProvideCacheStore creates the entry store shared by all page caches.
func ProvideCacheStore() *cache.Store {
	return cache.NewStore()
}

// ProvideSongPages creates the song pagination manager.
func ProvideSongPages(repo ports.SongRepository, store *cache.Store, cfg *config.Config, metrics *observability.CacheMetrics, logger *zap.Logger) *pagination.Manager[domain.Song] {
	pageCache := pagination.NewPageCache[domain.Song](store, "songs", cfg.PageCacheTTL, metrics)
	return pagination.NewManager[domain.Song](repo, pageCache, pagination.Config{
		SortField: "title",
		PageSize:  common.DefaultPageSize,
	}, logger)
}

// ProvideEventPages creates the archive event pagination manager.
func ProvideEventPages(repo ports.EventRepository, store *cache.Store, cfg *config.Config, metrics *observability.CacheMetrics, logger *zap.Logger) *pagination.Manager[domain.Event] {
	pageCache := pagination.NewPageCache[domain.Event](store, "events", cfg.PageCacheTTL, metrics)
	return pagination.NewManager[domain.Event](repo, pageCache, pagination.Config{
		SortField: "startDate",
		PageSize:  common.DefaultPageSize,
	}, logger)
}

// ProvideTaxonomyPages creates one pagination manager per taxonomy category.
// Each category gets its own collection so invalidation stays scoped.
func ProvideTaxonomyPages(repo ports.TaxonomyRepository, store *cache.Store, cfg *config.Config, metrics *observability.CacheMetrics, logger *zap.Logger) TaxonomyManagers {
	managers := make(TaxonomyManagers, len(domain.AllTaxonomyCategories()))
	for _, category := range domain.AllTaxonomyCategories() {
		source := taxonomy.NewPageSource(repo, category)
		pageCache := pagination.NewPageCache[domain.TaxonomyEntry](store, category.CollectionName(), cfg.PageCacheTTL, metrics)
		managers[category] = pagination.NewManager[domain.TaxonomyEntry](source, pageCache, pagination.Config{
			SortField: "sortOrder",
			PageSize:  common.DefaultPageSize,
		}, logger)
	}
	return managers
}

// ProvideEventFeed creates the external events feed client.
func ProvideEventFeed(cfg *config.Config, logger *zap.Logger) ports.EventFeed {
	return heritagefeed.NewClient(heritagefeed.Config{
		BaseURL: cfg.FeedBaseURL,
		APIKey:  cfg.FeedAPIKey,
		Timeout: cfg.FeedTimeout,
	}, logger)
}

// ProvideAggregator creates the merged events service.
func ProvideAggregator(repo ports.EventRepository, feed ports.EventFeed, cfg *config.Config, metrics *observability.CacheMetrics, logger *zap.Logger) *aggregation.Service {
	return aggregation.NewService(repo, feed, cfg.MergedCacheTTL, cfg.ArchiveCacheTTL, metrics, logger)
}

// ProvideIdentityProvider creates the identity provider, or nil when it is
// not configured; only local session tokens are accepted then.
func ProvideIdentityProvider(cfg *config.Config, logger *zap.Logger) (ports.IdentityProvider, error) {
	if cfg.SupabaseURL == "" || cfg.SupabaseServiceRoleKey == "" {
		logger.Warn("Identity provider not configured, accepting local session tokens only")
		return nil, nil
	}
	return identity.NewProvider(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, logger)
}

// ProvideSignalPublisher creates the mutation signal publisher.
func ProvideSignalPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.SignalPublisher {
	if cfg.EventBusName == "" {
		return nil
	}
	return notification.NewEventBridgePublisher(client, cfg.EventBusName, logger)
}

// ProvidePushDispatcher creates the websocket push dispatcher, or nil when
// no management endpoint is configured.
func ProvidePushDispatcher(awsCfg aws.Config, cfg *config.Config, db *awsdynamodb.Client, logger *zap.Logger) ports.PushDispatcher {
	if cfg.WebSocketEndpoint == "" {
		return nil
	}
	return notification.NewPushDispatcher(awsCfg, cfg.WebSocketEndpoint, cfg.DynamoDBTable, db, logger)
}

// ProvideNotifier creates the mutation notifier.
func ProvideNotifier(signals ports.SignalPublisher, push ports.PushDispatcher, logger *zap.Logger) *handlers.Notifier {
	return handlers.NewNotifier(signals, push, logger)
}

// ProvideObjectStore creates the image blob store.
func ProvideObjectStore(cfg *config.Config, logger *zap.Logger) (ports.ObjectStore, error) {
	return storage.NewFilesystemStore(cfg.StorageDir, logger)
}

// ProvideErrorHandler creates the HTTP error handler.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideValidator creates the session token validator. Outside production a
// missing secret falls back to a fixed development key.
func ProvideValidator(cfg *config.Config, logger *zap.Logger) (*auth.Validator, error) {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		logger.Warn("JWT_SECRET not set, using the development secret")
		secret = "local-development-secret"
	}
	return auth.NewValidator(auth.Config{SecretKey: secret, Issuer: cfg.JWTIssuer})
}

// ProvideImporter creates the CSV song importer.
func ProvideImporter(repo ports.SongRepository, logger *zap.Logger) *importer.CSVImporter {
	return importer.NewCSVImporter(repo, logger)
}

// ProvideSongHandler creates the song endpoints handler.
func ProvideSongHandler(repo ports.SongRepository, pages *pagination.Manager[domain.Song], objects ports.ObjectStore, notifier *handlers.Notifier, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *handlers.SongHandler {
	return handlers.NewSongHandler(repo, pages, objects, notifier, errorHandler, logger)
}

// ProvideEventHandler creates the event endpoints handler.
func ProvideEventHandler(repo ports.EventRepository, pages *pagination.Manager[domain.Event], aggregator *aggregation.Service, notifier *handlers.Notifier, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *handlers.EventHandler {
	return handlers.NewEventHandler(repo, pages, aggregator, notifier, errorHandler, logger)
}

// ProvideTaxonomyHandler creates the taxonomy endpoints handler.
func ProvideTaxonomyHandler(repo ports.TaxonomyRepository, pages TaxonomyManagers, notifier *handlers.Notifier, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *handlers.TaxonomyHandler {
	return handlers.NewTaxonomyHandler(repo, pages, notifier, errorHandler, logger)
}

// ProvideUserHandler creates the user management handler.
func ProvideUserHandler(idp ports.IdentityProvider, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *handlers.UserHandler {
	return handlers.NewUserHandler(idp, errorHandler, logger)
}

// ProvideImportHandler creates the CSV import handler.
func ProvideImportHandler(csvImporter *importer.CSVImporter, pages *pagination.Manager[domain.Song], notifier *handlers.Notifier, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *handlers.ImportHandler {
	return handlers.NewImportHandler(csvImporter, pages, notifier, errorHandler, logger)
}

// ProvideSystemHandler creates the cache admin handler.
func ProvideSystemHandler(store *cache.Store, metrics *observability.CacheMetrics) *handlers.SystemHandler {
	return handlers.NewSystemHandler(store, metrics)
}

// ProvideLegacyRouter creates the /api/v1 surface for the old client.
func ProvideLegacyRouter(songs ports.SongRepository, events ports.EventRepository, validator *auth.Validator, idp ports.IdentityProvider, logger *zap.Logger) LegacyHandler {
	return v1.NewRouter(songs, events, validator, idp, logger)
}

// ProvideHandlers bundles the endpoint handlers for the router.
func ProvideHandlers(
	songs *handlers.SongHandler,
	events *handlers.EventHandler,
	taxonomies *handlers.TaxonomyHandler,
	users *handlers.UserHandler,
	imports *handlers.ImportHandler,
	system *handlers.SystemHandler,
	legacy LegacyHandler,
) rest.Handlers {
	return rest.Handlers{
		Songs:    songs,
		Events:   events,
		Taxonomy: taxonomies,
		Users:    users,
		Import:   imports,
		System:   system,
		Legacy:   legacy,
	}
}

// ProvideRouter builds the HTTP entrypoint.
func ProvideRouter(h rest.Handlers, validator *auth.Validator, idp ports.IdentityProvider, registry *prometheus.Registry, cfg *config.Config, logger *zap.Logger) http.Handler {
	return rest.NewRouter(h, validator, idp, registry, cfg.CORSOrigins, logger).Setup()
}

// ProvideTuningWatcher creates the runtime tuning watcher when a tuning file
// is configured. Reloads retune the caches and page limits in place.
func ProvideTuningWatcher(
	cfg *config.Config,
	songPages *pagination.Manager[domain.Song],
	eventPages *pagination.Manager[domain.Event],
	taxonomyPages TaxonomyManagers,
	aggregator *aggregation.Service,
	logger *zap.Logger,
) (*config.TuningWatcher, error) {
	if cfg.TuningFile == "" {
		return nil, nil
	}

	apply := func(t config.Tuning) {
		songPages.Cache().SetTTL(t.PageCacheTTL)
		eventPages.Cache().SetTTL(t.PageCacheTTL)
		for _, m := range taxonomyPages {
			m.Cache().SetTTL(t.PageCacheTTL)
		}
		aggregator.SetTTLs(t.MergedCacheTTL, t.ArchiveCacheTTL)
		common.SetMaxPageSize(t.MaxPageSize)
		aggregator.SetFeedLimit(t.FeedLimit)
	}

	defaults := config.Tuning{
		PageCacheTTL:    cfg.PageCacheTTL,
		MergedCacheTTL:  cfg.MergedCacheTTL,
		ArchiveCacheTTL: cfg.ArchiveCacheTTL,
		MaxPageSize:     common.DefaultMaxPageSize,
	}
	watcher, err := config.NewTuningWatcher(cfg.TuningFile, defaults, logger)
	if err != nil {
		return nil, err
	}
	watcher.OnChange(apply)
	apply(watcher.Current())
	return watcher, nil
}
