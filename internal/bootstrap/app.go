package bootstrap

import (
	"context"
	"database/sql"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"skillgap-backend/internal/analyses"
	"skillgap-backend/internal/identity"
	"skillgap-backend/internal/llm"
	"skillgap-backend/internal/llm/gemini"
	"skillgap-backend/internal/queue"
	"skillgap-backend/internal/shared/config"
	"skillgap-backend/internal/shared/server"
	"skillgap-backend/internal/shared/storage/cache"
	"skillgap-backend/internal/shared/storage/db"
)

// App holds shared dependencies for the API and worker processes.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	CacheStore      cache.Store
	Queue           queue.Client
	Provider        llm.Provider
	AnalysesRepo    analyses.Repo
	IdentityRepo    identity.Repo
	ResultCache     *analyses.ResultCache
	AnalysesService *analyses.Service
	Worker          *analyses.Worker
	AnalysisHandler *analyses.Handler
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cacheStore, err := buildCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:     cfg,
		DB:         sqlDB,
		CacheStore: cacheStore,
		Queue:      queueClient,
		Provider:   provider,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		AnalysisHandler: app.AnalysisHandler,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, errRequired("DATABASE_URL")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildCache(ctx context.Context, cfg config.Config) (cache.Store, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: REDIS_URL empty; using in-memory cache")
			return cache.NewMemory(nil), nil
		}
		return nil, errRequired("REDIS_URL")
	}

	store, err := cache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: redis connect failed; using in-memory cache: %v", err)
			return cache.NewMemory(nil), nil
		}
		return nil, err
	}
	return store, nil
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		log.Printf("bootstrap: SG_SQS_QUEUE_URL empty; analyses will be processed in-process")
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.QueueURL)
}

func buildProvider(cfg config.Config) (llm.Provider, error) {
	if cfg.LLMProvider == "gemini" && strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		return gemini.NewClient(cfg.GeminiAPIKey, cfg.LLMModel)
	}
	log.Printf("bootstrap: no llm provider configured; using placeholder")
	return llm.PlaceholderProvider{}, nil
}

func buildServices(app *App) {
	if app.DB != nil {
		app.AnalysesRepo = analyses.NewPGRepo(app.DB)
		app.IdentityRepo = identity.NewPGRepo(app.DB)
	} else {
		app.AnalysesRepo = analyses.NewMemoryRepo()
		app.IdentityRepo = identity.NewMemoryRepo()
	}

	app.ResultCache = analyses.NewResultCache(app.CacheStore, app.Config.CacheTTL)

	callsPerMinute := app.Config.ProviderCallsPerMinute
	if callsPerMinute <= 0 {
		callsPerMinute = 10
	}
	app.Worker = &analyses.Worker{
		Repo:           app.AnalysesRepo,
		Cache:          app.ResultCache,
		Provider:       app.Provider,
		Limiter:        rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), callsPerMinute),
		MaxAttempts:    app.Config.MaxAttempts,
		AttemptTimeout: app.Config.ProviderTimeout,
	}

	app.AnalysesService = &analyses.Service{
		Repo:      app.AnalysesRepo,
		Identity:  app.IdentityRepo,
		Cache:     app.ResultCache,
		Queue:     app.Queue,
		Processor: app.Worker,
	}
	app.AnalysisHandler = analyses.NewHandler(app.AnalysesService)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

type errRequired string

func (e errRequired) Error() string { return string(e) + " is required" }
