package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"MICDataset/internal/dataset"
	"MICDataset/internal/domain"
	"MICDataset/internal/filter"
	"MICDataset/internal/ports"
	"MICDataset/internal/validator"
	"MICDataset/internal/workerpool"
)

// PipelineOptions controls which steps run and where their artifacts go.
type PipelineOptions struct {
	RunID       string
	Workers     int
	DatasetPath string
	SamplePath  string
	SampleSize  int
	SampleSeed  uint64

	Force        bool
	SkipClassify bool
	SkipDataset  bool
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Review, Notifier and Metrics are optional.
type PipelineDeps struct {
	Store      ports.ArticleStore
	Filter     *filter.Filter
	Invoker    *Invoker
	Ledger     ports.ResponseLedger
	Rejections ports.RejectionLog
	Dataset    ports.DatasetWriter
	Assembler  *dataset.Assembler
	Review     ports.ReviewExporter
	Notifier   ports.Notifier
	Metrics    ports.RunMetrics
	Logger     *slog.Logger
	Options    PipelineOptions
}

// Pipeline implements the filter, classify, validate and assemble workflow.
type Pipeline struct {
	store      ports.ArticleStore
	filter     *filter.Filter
	invoker    *Invoker
	ledger     ports.ResponseLedger
	rejections ports.RejectionLog
	dataset    ports.DatasetWriter
	assembler  *dataset.Assembler
	review     ports.ReviewExporter
	notifier   ports.Notifier
	metrics    ports.RunMetrics
	logger     *slog.Logger
	opts       PipelineOptions
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	opts := deps.Options
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pipeline{
		store:      deps.Store,
		filter:     deps.Filter,
		invoker:    deps.Invoker,
		ledger:     deps.Ledger,
		rejections: deps.Rejections,
		dataset:    deps.Dataset,
		assembler:  deps.Assembler,
		review:     deps.Review,
		notifier:   deps.Notifier,
		metrics:    metrics,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Run executes the enabled steps and reports what happened. The summary is returned
// even when a step fails so the caller can log partial progress.
func (p *Pipeline) Run(ctx context.Context) (domain.RunSummary, error) {
	summary := domain.NewRunSummary(p.opts.RunID, p.now())

	var runErr error
	if p.opts.SkipClassify {
		p.logger.Info("classification step skipped")
	} else {
		runErr = p.classify(ctx, &summary)
	}

	if runErr == nil {
		if p.opts.SkipDataset {
			p.logger.Info("dataset step skipped")
		} else {
			runErr = p.buildDataset(ctx, &summary)
		}
	}

	summary.FinishedAt = p.now()
	p.finish(ctx, summary, runErr)
	return summary, runErr
}

func (p *Pipeline) classify(ctx context.Context, summary *domain.RunSummary) error {
	accepted, err := p.ledger.ProcessedIDs(ctx)
	if err != nil {
		return fmt.Errorf("load processed responses: %w", err)
	}
	rejected, err := p.rejections.ProcessedIDs(ctx)
	if err != nil {
		return fmt.Errorf("load processed rejections: %w", err)
	}
	p.logger.Info("resume state loaded", "accepted", len(accepted), "rejected", len(rejected))

	agg := NewAggregator(p.opts.RunID, p.ledger, p.rejections, p.metrics, p.logger.With("component", "aggregator"))
	agg.Seed(accepted)

	excluded, err := p.store.CountExcluded(ctx)
	if err != nil {
		return fmt.Errorf("count pushed-down articles: %w", err)
	}
	summary.Scanned += excluded
	summary.FilteredOut += excluded
	p.metrics.AddFiltered(string(filter.StageCategory), excluded)

	pool := workerpool.New(p.opts.Workers, p.opts.Workers*2)
	pool.Start(ctx)

	streamErr := p.store.StreamCandidates(ctx, func(article domain.Article) error {
		summary.Scanned++

		projected, stage, err := p.filter.Apply(article)
		p.metrics.ObserveFilter(string(stage))
		if stage != filter.StageNone {
			summary.FilteredOut++
			return nil
		}
		summary.Passed++

		if accepted[article.ID] || rejected[article.ID] {
			summary.AlreadyDone++
			return nil
		}
		if err != nil {
			return agg.Reject(ctx, article.ID, err, article.PublicationDate)
		}
		if !projected.HasText() {
			summary.Skipped++
			return agg.Skip(ctx, article.ID, domain.Violation(domain.ErrSchemaViolation, "missing article text"))
		}

		summary.Classified++
		return pool.Submit(func(ctx context.Context) error {
			return p.classifyOne(ctx, agg, projected)
		})
	})
	poolErr := pool.Close()
	agg.Apply(summary)

	if poolErr != nil {
		return fmt.Errorf("classify articles: %w", poolErr)
	}
	if streamErr != nil {
		return fmt.Errorf("stream candidates: %w", streamErr)
	}
	return nil
}

func (p *Pipeline) classifyOne(ctx context.Context, agg *Aggregator, article domain.FilteredArticle) error {
	raw, err := p.invoker.Invoke(ctx, article)
	if err != nil {
		if ctx.Err() != nil {
			// interrupted: leave the article for the next run
			return nil
		}
		return agg.Reject(ctx, article.ID, err, "")
	}
	return agg.Collect(ctx, raw, validator.ValidateResponse(raw))
}

func (p *Pipeline) buildDataset(ctx context.Context, summary *domain.RunSummary) error {
	if p.dataset.Exists(p.opts.DatasetPath) && !p.opts.Force {
		p.logger.Info("dataset exists, skipping", "path", p.opts.DatasetPath)
		return nil
	}

	responses, err := p.ledger.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load responses: %w", err)
	}

	ids := make([]int64, 0, len(responses))
	for _, resp := range responses {
		ids = append(ids, resp.ArticleID)
	}
	articles, err := p.store.FetchByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch articles: %w", err)
	}

	projected := make(map[int64]domain.FilteredArticle, len(articles))
	for id, article := range articles {
		fa, err := filter.Project(article, p.filter.Dates())
		if err != nil {
			p.logger.Warn("article dropped from dataset", "article_id", id, "error", err)
			continue
		}
		projected[id] = fa
	}

	res, err := p.assembler.Assemble(responses, projected)
	if err != nil {
		return fmt.Errorf("assemble dataset: %w", err)
	}
	if len(res.MissingArticles) > 0 {
		p.logger.Warn("responses without article", "count", len(res.MissingArticles), "article_ids", res.MissingArticles)
	}
	if len(res.Duplicates) > 0 {
		p.logger.Warn("duplicate responses in ledger", "count", len(res.Duplicates), "article_ids", res.Duplicates)
	}

	if err := p.dataset.WriteExamples(p.opts.DatasetPath, res.Examples); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	summary.Examples = len(res.Examples)
	summary.DatasetBuilt = true
	p.logger.Info("dataset written", "path", p.opts.DatasetPath, "examples", summary.Examples)

	sample := dataset.Sample(res.Examples, p.opts.SampleSize, p.opts.SampleSeed)
	if p.opts.SamplePath != "" {
		if err := p.dataset.WriteExamples(p.opts.SamplePath, sample); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
		summary.Sampled = len(sample)
		p.logger.Info("sample written", "path", p.opts.SamplePath, "examples", summary.Sampled, "seed", p.opts.SampleSeed)
	}

	if p.review != nil {
		rejections, err := p.rejections.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load rejections: %w", err)
		}
		if err := p.review.Export(ctx, sample, rejections); err != nil {
			return fmt.Errorf("export review workbook: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) finish(ctx context.Context, summary domain.RunSummary, runErr error) {
	args := summary.LogArgs()
	switch {
	case runErr == nil:
		p.logger.Info("run finished", args...)
	case errors.Is(runErr, context.Canceled):
		p.logger.Warn("run interrupted", args...)
	default:
		p.logger.Error("run failed", append(args, "error", runErr)...)
	}

	if err := p.metrics.Flush(summary); err != nil {
		p.logger.Warn("flush metrics failed", "error", err)
	}

	if p.notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.notifier.PublishDigest(notifyCtx, summary.Message()); err != nil {
		p.logger.Warn("publish run summary failed", "error", err)
	}
}
