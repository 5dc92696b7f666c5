package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-insights/internal/account"
	"resume-insights/internal/analyses"
	"resume-insights/internal/auth"
	"resume-insights/internal/documents"
	"resume-insights/internal/jobmatch"
	"resume-insights/internal/llm"
	"resume-insights/internal/llm/gemini"
	"resume-insights/internal/llm/openai"
	"resume-insights/internal/queue"
	"resume-insights/internal/services/health"
	sharedauth "resume-insights/internal/shared/auth"
	"resume-insights/internal/shared/config"
	"resume-insights/internal/shared/server"
	"resume-insights/internal/shared/storage/db"
	"resume-insights/internal/shared/storage/object"
	localstore "resume-insights/internal/shared/storage/object/local"
	s3store "resume-insights/internal/shared/storage/object/s3"
	"resume-insights/internal/shared/telemetry"
	"resume-insights/internal/skillgap"
	"resume-insights/internal/users"
)

// App holds shared dependencies for the API, the workers and the CLI.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	SkillsDB *sql.DB
	Store    object.ObjectStore
	Queue    queue.Client
	Tokens   *sharedauth.Issuer

	DocumentsRepo documents.DocumentsRepo
	AnalysesRepo  analyses.Repo
	UsersRepo     users.Repo
	SkillsRepo    skillgap.Repo

	DocumentsService *documents.Service
	AnalysesService  *analyses.Service
	JobMatchService  *jobmatch.Service
	SkillGapService  *skillgap.Service
	UsersService     *users.Service
	AccountService   *account.Service
	Health           *health.Service

	closers []func() error
}

// Build prepares every dependency and the router.
func Build(cfg config.Config) (*App, error) {
	return BuildContext(context.Background(), cfg)
}

// BuildContext is Build with a caller supplied context for the startup I/O.
func BuildContext(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil && !db.IsLambdaRuntime() {
		app.closers = append(app.closers, sqlDB.Close)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	queueClient, closeQueue, err := queue.New(ctx, queue.Settings{
		SQSQueueURL: cfg.SQSQueueURL,
		AWSRegion:   cfg.AWSRegion,
		AMQPURL:     cfg.AMQPURL,
		AMQPQueue:   cfg.AMQPQueue,
	})
	switch {
	case errors.Is(err, queue.ErrNotConfigured):
		telemetry.Info("bootstrap.queue", map[string]any{"mode": "in_process"})
	case err != nil:
		app.Close()
		return nil, fmt.Errorf("queue: %w", err)
	default:
		app.Queue = queueClient
		app.closers = append(app.closers, closeQueue)
	}

	completer, err := NewCompleter(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	if err := buildSkills(ctx, app); err != nil {
		app.Close()
		return nil, err
	}

	hasher, err := users.NewHasher(cfg.BcryptCost)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Tokens = sharedauth.NewIssuer(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLHours)*time.Hour,
	)

	buildServices(app, completer, hasher)
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Tokens:          app.Tokens,
		Health:          app.Health,
		AuthHandler:     auth.NewHandler(app.UsersService, app.Tokens),
		GoogleAuth:      auth.NewGoogleService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.UIRedirectURL, app.UsersService, app.Tokens),
		DocumentHandler: documents.NewHandler(app.DocumentsService),
		AnalysisHandler: analyses.NewHandler(app.AnalysesService, app.DocumentsService),
		JobMatchHandler: jobmatch.NewHandler(app.JobMatchService),
		SkillGapHandler: skillgap.NewHandler(app.SkillGapService),
		AccountHandler:  account.NewHandler(app.AccountService),
	})
	return app, nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		telemetry.Info("bootstrap.database", map[string]any{"mode": "memory"})
		return nil, nil
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, withDriver(db.OptionsFromEnv(db.DefaultLambdaOptions()), cfg))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, withDriver(db.OptionsFromEnv(db.DefaultServerOptions()), cfg))
	}
	if err == nil {
		if migErr := db.RunMigrations(ctx, sqlDB); migErr != nil {
			if !db.IsLambdaRuntime() {
				sqlDB.Close()
			}
			sqlDB, err = nil, fmt.Errorf("migrations: %w", migErr)
		}
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.database.fallback", map[string]any{"mode": "memory", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func withDriver(opts db.Options, cfg config.Config) db.Options {
	if opts.Driver == "" {
		opts.Driver = cfg.DBDriver
	}
	return opts
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// NewCompleter returns the configured LLM provider, or nil for the
// placeholder. Outside dev a misconfigured provider is an error.
func NewCompleter(ctx context.Context, cfg config.Config) (llm.Completer, error) {
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	var (
		c   llm.Completer
		err error
	)
	switch cfg.LLMProvider {
	case "openai":
		c, err = openai.NewClient(cfg.LLMAPIKey, cfg.LLMModel, openai.Options{
			Provider: "openai",
			BaseURL:  cfg.LLMBaseURL,
			Timeout:  timeout,
		})
	case "openrouter":
		model := cfg.LLMModel
		if model == "" {
			model = openai.DefaultOpenRouterModel
		}
		base := cfg.LLMBaseURL
		if base == "" {
			base = openai.OpenRouterBaseURL
		}
		c, err = openai.NewClient(cfg.LLMAPIKey, model, openai.Options{
			Provider: "openrouter",
			BaseURL:  base,
			Timeout:  timeout,
			Referer:  cfg.UIRedirectURL,
		})
	case "gemini":
		c, err = gemini.NewClient(ctx, cfg.LLMAPIKey, cfg.LLMModel)
	case "", "placeholder":
		return nil, nil
	default:
		err = fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.llm.fallback", map[string]any{
				"provider": cfg.LLMProvider,
				"error":    err.Error(),
			})
			return nil, nil
		}
		return nil, fmt.Errorf("llm: %w", err)
	}
	return c, nil
}

// buildSkills stores the catalogue in Postgres when available, else in SQLite
// at SQLITE_PATH, else in memory.
func buildSkills(ctx context.Context, app *App) error {
	var repo skillgap.Repo
	switch {
	case app.DB != nil:
		repo = skillgap.NewSQLRepo(app.DB, skillgap.DialectPostgres)
	case strings.TrimSpace(app.Config.SQLitePath) != "":
		sqlite, err := db.OpenSQLite(ctx, app.Config.SQLitePath)
		if err != nil {
			telemetry.Warn("bootstrap.skills.fallback", map[string]any{"mode": "memory", "error": err.Error()})
			repo = skillgap.NewMemoryRepo()
			break
		}
		app.SkillsDB = sqlite
		app.closers = append(app.closers, sqlite.Close)
		sqlRepo := skillgap.NewSQLRepo(sqlite, skillgap.DialectSQLite)
		if err := sqlRepo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("skills schema: %w", err)
		}
		repo = sqlRepo
	default:
		repo = skillgap.NewMemoryRepo()
	}

	svc := skillgap.NewService(repo)
	if err := svc.EnsureCatalog(ctx); err != nil {
		return fmt.Errorf("skills catalogue: %w", err)
	}
	app.SkillsRepo = repo
	app.SkillGapService = svc
	return nil
}

func buildServices(app *App, completer llm.Completer, hasher users.Hasher) {
	if app.DB != nil {
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.AnalysesRepo = &analyses.PGRepo{DB: app.DB}
		app.UsersRepo = &users.PGRepo{DB: app.DB}
	} else {
		app.DocumentsRepo = documents.NewMemoryRepo()
		app.AnalysesRepo = analyses.NewMemoryRepo()
		app.UsersRepo = users.NewMemoryRepo()
	}

	var (
		client  llm.Client  = llm.PlaceholderClient{}
		matcher llm.Matcher = llm.PlaceholderClient{}
	)
	provider, model := "placeholder", ""
	if completer != nil {
		engine := llm.NewEngine(completer)
		client, matcher = engine, engine
		provider, model = engine.Provider(), engine.Model()
	}

	app.DocumentsService = &documents.Service{Store: app.Store, Repo: app.DocumentsRepo}
	app.AnalysesService = &analyses.Service{
		Repo:            app.AnalysesRepo,
		DocRepo:         app.DocumentsRepo,
		Store:           app.Store,
		LLM:             client,
		Queue:           app.Queue,
		Provider:        provider,
		Model:           model,
		AnalysisVersion: app.Config.AnalysisVersion,
	}
	app.JobMatchService = &jobmatch.Service{Matcher: matcher}
	app.UsersService = users.NewService(app.UsersRepo, hasher)
	app.AccountService = account.NewService(app.DB, app.DocumentsRepo, app.AnalysesRepo, app.SkillsRepo)
	app.Health = health.NewService(pinger(app.DB), app.Queue != nil, app.Config.AnalysisVersion)
}

// pinger avoids handing health a non-nil interface around a nil *sql.DB.
func pinger(sqlDB *sql.DB) health.Pinger {
	if sqlDB == nil {
		return nil
	}
	return sqlDB
}
