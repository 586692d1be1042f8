package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"MICDataset/internal/domain"
	"MICDataset/internal/ports"
	"MICDataset/internal/validator"
)

// Aggregator keeps at most one accepted response per article and routes everything else
// to the rejection log. It is safe for concurrent use by the classifier workers.
type Aggregator struct {
	runID      string
	ledger     ports.ResponseLedger
	rejections ports.RejectionLog
	metrics    ports.RunMetrics
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	accepted map[int64]bool
	counts   aggregateCounts
}

type aggregateCounts struct {
	accepted int
	rejected map[domain.ErrorKind]int
}

func NewAggregator(runID string, ledger ports.ResponseLedger, rejections ports.RejectionLog, metrics ports.RunMetrics, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Aggregator{
		runID:      runID,
		ledger:     ledger,
		rejections: rejections,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		accepted:   map[int64]bool{},
		counts:     aggregateCounts{rejected: map[domain.ErrorKind]int{}},
	}
}

// Seed marks articles accepted by an earlier run.
func (a *Aggregator) Seed(ids map[int64]bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id := range ids {
		a.accepted[id] = true
	}
}

// Collect stores the validation outcomes of one classifier answer. The first accepted
// object wins; later accepted objects for the same article are duplicates.
// Only ledger write failures are returned.
func (a *Aggregator) Collect(ctx context.Context, raw domain.RawResponse, outcomes []validator.Outcome) error {
	for _, outcome := range outcomes {
		if !outcome.Accepted() {
			if err := a.Reject(ctx, raw.ArticleID, outcome.Err, raw.Payload); err != nil {
				return err
			}
			continue
		}
		if err := a.accept(ctx, raw, outcome.Response); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregator) accept(ctx context.Context, raw domain.RawResponse, resp domain.ClassificationResponse) error {
	a.mu.Lock()
	if a.accepted[resp.ArticleID] {
		a.mu.Unlock()
		dup := domain.Violation(domain.ErrDuplicateResponse, "article %d already has an accepted response", resp.ArticleID)
		return a.Reject(ctx, raw.ArticleID, dup, raw.Payload)
	}
	a.accepted[resp.ArticleID] = true
	a.counts.accepted++
	a.mu.Unlock()

	if err := a.ledger.Append(ctx, resp); err != nil {
		return fmt.Errorf("store accepted response: %w", err)
	}
	a.metrics.ObserveAccepted()
	a.logger.Debug("response accepted", "article_id", resp.ArticleID, "is_relevant", resp.IsRelevant)
	return nil
}

// Reject records a failed article or response and counts it under its error kind.
func (a *Aggregator) Reject(ctx context.Context, articleID int64, cause error, payload string) error {
	kind := domain.KindOf(cause)
	a.mu.Lock()
	a.counts.rejected[kind]++
	a.mu.Unlock()
	a.metrics.ObserveRejection(kind)
	return a.record(ctx, articleID, kind, cause, payload)
}

// Skip records an article that was not sent to the classifier. It is not counted as rejected.
func (a *Aggregator) Skip(ctx context.Context, articleID int64, cause error) error {
	return a.record(ctx, articleID, domain.KindOf(cause), cause, "")
}

func (a *Aggregator) record(ctx context.Context, articleID int64, kind domain.ErrorKind, cause error, payload string) error {
	level := slog.LevelWarn
	if kind == domain.KindDuplicateResponse {
		level = slog.LevelInfo
	}
	a.logger.Log(ctx, level, "article rejected", "article_id", articleID, "kind", string(kind), "error", cause)

	rejection := domain.Rejection{
		RunID:      a.runID,
		ArticleID:  articleID,
		Kind:       kind,
		Reason:     cause.Error(),
		RawPayload: payload,
		At:         a.now().UTC(),
	}
	if err := a.rejections.Record(ctx, rejection); err != nil {
		return fmt.Errorf("store rejection: %w", err)
	}
	return nil
}

// Apply copies the aggregated counts into the run summary.
func (a *Aggregator) Apply(summary *domain.RunSummary) {
	a.mu.Lock()
	defer a.mu.Unlock()
	summary.Accepted += a.counts.accepted
	for kind, n := range a.counts.rejected {
		summary.Rejected[kind] += n
	}
}

type noopMetrics struct{}

func (noopMetrics) ObserveFilter(string) {}
func (noopMetrics) AddFiltered(string, int) {}
func (noopMetrics) ObserveClassification(string, float64) {}
func (noopMetrics) ObserveRejection(domain.ErrorKind) {}
func (noopMetrics) ObserveAccepted() {}
func (noopMetrics) Flush(domain.RunSummary) error { return nil }
