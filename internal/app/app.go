package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"MICDataset/internal/config"
	"MICDataset/internal/dataset"
	"MICDataset/internal/domain"
	"MICDataset/internal/filter"
	"MICDataset/internal/infrastructure/llm"
	"MICDataset/internal/infrastructure/parser"
	"MICDataset/internal/infrastructure/resilience"
	"MICDataset/internal/infrastructure/review"
	"MICDataset/internal/infrastructure/storage"
	"MICDataset/internal/infrastructure/telegram"
	"MICDataset/internal/logging"
	"MICDataset/internal/observability/metrics"
	"MICDataset/internal/ports"
	"MICDataset/internal/prompt"
	"MICDataset/internal/usecase"
)

// Flags are the per-invocation switches from the command line.
type Flags struct {
	Force        bool
	SkipClassify bool
	SkipDataset  bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	runID    string
	db       *sql.DB
	pipeline *usecase.Pipeline
	logger   *slog.Logger
}

// New opens the article database and builds the pipeline.
func New(ctx context.Context, cfg config.Config, flags Flags, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	runID := uuid.NewString()
	logger := baseLogger.With("run_id", runID)

	rulesCfg, err := cfg.Rules.LoadRules()
	if err != nil {
		return nil, err
	}
	rules := filter.NewRules(rulesCfg.ExcludableSubjects, rulesCfg.RelevantSubjects, rulesCfg.DomesticLocations).
		WithCategoryMarker(rulesCfg.CategoryMarker)
	excl, rel, dom := rules.Sizes()
	logger.Info("rules loaded", "excludable_subjects", excl, "relevant_subjects", rel, "domestic_locations", dom)

	relevance := filter.New(rules, filter.DateFormat{
		SourceLayouts: cfg.Dates.SourceLayouts,
		DisplayLayout: cfg.Dates.DisplayLayout,
	})

	builder, err := newPromptBuilder(cfg)
	if err != nil {
		return nil, err
	}

	dialect, err := storage.DialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	marker := rules.CategoryMarker
	if cfg.Database.DisablePushDown {
		marker = ""
	}
	store := storage.NewArticleStore(db, dialect, storage.ArticleStoreOptions{
		Table:          cfg.Database.Table,
		BatchSize:      cfg.Database.BatchSize,
		CategoryMarker: marker,
	})

	runMetrics := metrics.NewRunMetrics(cfg.Output.Metrics)

	var invoker *usecase.Invoker
	if !flags.SkipClassify {
		classifier, err := newClassifier(ctx, cfg.LLM)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		var archive ports.PromptArchive
		if cfg.Output.PromptsDir != "" {
			archive = storage.NewPromptFiles(cfg.Output.PromptsDir)
		}
		invoker = usecase.NewInvoker(usecase.InvokerDeps{
			Classifier: classifier,
			Executor:   resilience.NewExecutor(resilienceConfig(cfg.LLM), logger.With("component", "resilience")),
			Prompts:    builder,
			Archive:    archive,
			Metrics:    runMetrics,
			Logger:     logger.With("component", "invoker"),
		})
	}

	var reviewer ports.ReviewExporter
	if cfg.Output.Review != "" {
		reviewer = review.NewWorkbook(cfg.Output.Review)
	}

	var notifier ports.Notifier
	tg := telegram.NewNotifier(cfg.Notifications.Telegram.APIBase, cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	if tg.Configured() {
		notifier = tg
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Store:      store,
		Filter:     relevance,
		Invoker:    invoker,
		Ledger:     storage.NewResponseLedger(cfg.Output.Responses, logger.With("component", "ledger")),
		Rejections: storage.NewRejectionLog(cfg.Output.Rejections, cfg.Resume.RetryRejected, logger.With("component", "rejections")),
		Dataset:    storage.DatasetFiles{},
		Assembler:  dataset.NewAssembler(builder),
		Review:     reviewer,
		Notifier:   notifier,
		Metrics:    runMetrics,
		Logger:     logger.With("component", "pipeline"),
		Options: usecase.PipelineOptions{
			RunID:        runID,
			Workers:      cfg.LLM.Workers,
			DatasetPath:  cfg.Output.Dataset,
			SamplePath:   cfg.Output.Sample,
			SampleSize:   cfg.Sample.Size,
			SampleSeed:   cfg.Sample.Seed,
			Force:        flags.Force,
			SkipClassify: flags.SkipClassify,
			SkipDataset:  flags.SkipDataset,
		},
	})

	return &Application{cfg: cfg, runID: runID, db: db, pipeline: pipeline, logger: logger}, nil
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (domain.RunSummary, error) {
	a.logger.Info("run started", "driver", a.cfg.Database.Driver, "backend", a.cfg.LLM.Backend, "workers", a.cfg.LLM.Workers)
	return a.pipeline.Run(ctx)
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func newPromptBuilder(cfg config.Config) (*prompt.Builder, error) {
	system, err := prompt.LoadTemplate(cfg.Prompt.SystemPath)
	if err != nil {
		return nil, err
	}
	user, err := prompt.LoadTemplate(cfg.Prompt.UserPath)
	if err != nil {
		return nil, err
	}
	var cleaner prompt.Cleaner
	if !cfg.Prompt.DisableHTMLCleanup {
		cleaner = parser.PlainText
	}
	return prompt.NewBuilder(prompt.Options{
		SystemTemplate: system,
		UserTemplate:   user,
		MaxTextChars:   cfg.LLM.MaxTextChars,
		Cleaner:        cleaner,
	})
}

// newClassifier registers every backend the configuration can build and resolves the selected one.
func newClassifier(ctx context.Context, cfg config.LLMConfig) (ports.Classifier, error) {
	registry := llm.NewRegistry()

	registry.Register(llm.NewChatGPTClient(llm.ChatGPTConfig{
		Endpoint:     chatGPTEndpoint(cfg.BaseURL),
		Model:        cfg.Model,
		APIKey:       cfg.APIKey,
		Temperature:  cfg.TemperatureValue(),
		StrictSchema: !cfg.DisableStrictSchema,
	}, &http.Client{}))

	if cfg.Backend == llm.OpenAIBackend {
		eino, err := llm.NewEinoClassifier(ctx, llm.EinoConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.TemperatureValue(),
		})
		if err != nil {
			return nil, fmt.Errorf("build %s backend: %w", llm.OpenAIBackend, err)
		}
		registry.Register(eino)
	}

	return registry.Resolve(cfg.Backend)
}

func chatGPTEndpoint(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/chat/completions"
}

func resilienceConfig(cfg config.LLMConfig) resilience.Config {
	return resilience.Config{
		RatePerSecond:           cfg.RatePerSecond,
		RateBurst:               1,
		AttemptTimeout:          cfg.Timeout,
		RetryMaxAttempts:        cfg.Retry.MaxAttempts,
		RetryInitialBackoff:     cfg.Retry.InitialBackoff,
		RetryMaxBackoff:         cfg.Retry.MaxBackoff,
		RetryMultiplier:         cfg.Retry.Multiplier,
		BreakerEnabled:          !cfg.Breaker.Disabled,
		BreakerMinRequests:      cfg.Breaker.MinRequests,
		BreakerFailureRatio:     cfg.Breaker.FailureRatio,
		BreakerOpenTimeout:      cfg.Breaker.OpenTimeout,
		BreakerHalfOpenMaxCalls: 1,
	}
}
