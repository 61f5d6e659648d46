package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"ragchat/internal/ai"
	"ragchat/internal/app"
	"ragchat/internal/cache"
	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/extract"
	"ragchat/internal/logger"
	mongoClient "ragchat/internal/platform/mongo"
	mysqlClient "ragchat/internal/platform/mysql"
	rabbitmqClient "ragchat/internal/platform/rabbitmq"
	redisClient "ragchat/internal/platform/redis"
	"ragchat/internal/rank"
	"ragchat/internal/repository"
	"ragchat/internal/repository/mongorepo"
	"ragchat/internal/storage"
	"ragchat/internal/telemetry"
	"ragchat/internal/worker"
)

// App holds every long-lived resource and service of the process.
type App struct {
	Config *config.Config

	Store        app.Store
	Redis        *redis.Client
	MQConn       *amqp.Connection
	IngestWorker *worker.IngestWorker
	Generator    *ai.Guarded

	AuthService     *app.AuthService
	ChatService     *app.ChatService
	IngestService   *app.IngestService
	HistoryService  *app.HistoryService
	SettingsService *app.SettingsService

	StartedAt time.Time

	closers []func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger.Init(cfg.App.LogLevel, cfg.App.GinMode)

	a := &App{Config: cfg, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.Options{
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, shutdownTracer)

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	a.Store = store

	a.Redis, err = redisClient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return a.Redis.Close() })

	a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.App.Name, cfg.RabbitMQ.IngestQueue)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return a.MQConn.Close() })

	provider, err := a.openProvider(ctx)
	if err != nil {
		return err
	}
	a.Generator = ai.NewGuarded(provider, ai.GuardOptions{
		Name:          cfg.LLM.Provider,
		RatePerSecond: cfg.LLM.RatePerSecond,
		Burst:         cfg.LLM.Burst,
	})

	files, err := storage.NewFileStore(cfg.Upload.Dir)
	if err != nil {
		return err
	}
	ch, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("%w: %w", app.ErrInvalidConfiguration, err)
	}

	historyCache := cache.NewHistoryCache(
		a.Redis,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmqClient.NewIngestPublisher(a.MQConn, cfg.RabbitMQ.IngestQueue)

	a.AuthService = app.NewAuthService(
		store,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	a.ChatService = app.NewChatService(
		rank.NewRanker(store, rank.KeywordScorer{}),
		store,
		a.Generator,
		historyCache,
		cfg.RAG.TopK,
	)
	a.IngestService = app.NewIngestService(store, store, files, extract.NewRegistry(), ch, app.IngestOptions{
		AllowedFormats: cfg.Upload.AllowedFormats,
		MaxBytes:       cfg.Upload.MaxBytes,
		Publisher:      publisher,
	})
	a.HistoryService = app.NewHistoryService(store, historyCache)
	a.SettingsService = app.NewSettingsService(store, store, a.Generator)

	a.IngestWorker = worker.NewIngestWorker(a.MQConn, a.IngestService, cfg.RabbitMQ.IngestQueue)
	if err := a.IngestWorker.Start(ctx); err != nil {
		return fmt.Errorf("start ingest worker failed: %w", err)
	}

	logger.Info("application initialized",
		"store", cfg.Store.Driver,
		"llm_provider", cfg.LLM.Provider,
		"chunk_size", ch.Size(),
		"chunk_overlap", ch.Overlap(),
	)
	return nil
}

func (a *App) openStore(ctx context.Context) (app.Store, error) {
	cfg := a.Config
	switch cfg.Store.Driver {
	case config.StoreDriverMongo:
		client, db, err := mongoClient.New(ctx, cfg.Mongo.URI, cfg.Mongo.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		return mongorepo.NewStore(db), nil
	default:
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN(), cfg.App.GinMode == "debug")
		if err != nil {
			return nil, err
		}
		store := repository.NewStore(db)
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
}

func (a *App) openProvider(ctx context.Context) (ai.Provider, error) {
	cfg := a.Config.LLM
	switch cfg.Provider {
	case config.LLMProviderGemini:
		client, err := ai.NewGeminiClient(ctx, cfg.APIKey, cfg.Models)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		return client, nil
	default:
		return ai.NewOpenAICompatibleClient(ai.OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
			Catalog: cfg.Models,
		}), nil
	}
}

// Close stops the worker first, then releases resources in reverse order
// of acquisition.
func (a *App) Close() error {
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
