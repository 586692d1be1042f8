package ports

import (
	"context"

	"MICDataset/internal/domain"
)

// ArticleStore reads raw article rows. It is never written to by the pipeline.
type ArticleStore interface {
	// StreamCandidates calls fn for every row that survives the pushed-down filter, in ascending id order.
	StreamCandidates(ctx context.Context, fn func(domain.Article) error) error
	FetchByIDs(ctx context.Context, ids []int64) (map[int64]domain.Article, error)
	// CountExcluded reports rows the pushed-down category gate keeps out of StreamCandidates.
	CountExcluded(ctx context.Context) (int, error)
}

// Classifier sends one article to a text-generation endpoint and returns its raw answer.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, req domain.ClassificationRequest) (string, error)
}

// ResponseLedger is the append-only output of accepted responses.
type ResponseLedger interface {
	ProcessedIDs(ctx context.Context) (map[int64]bool, error)
	Append(ctx context.Context, resp domain.ClassificationResponse) error
	LoadAll(ctx context.Context) ([]domain.ClassificationResponse, error)
}

// RejectionLog keeps rejected payloads for manual review.
type RejectionLog interface {
	ProcessedIDs(ctx context.Context) (map[int64]bool, error)
	Record(ctx context.Context, rejection domain.Rejection) error
	LoadAll(ctx context.Context) ([]domain.Rejection, error)
}

// DatasetWriter persists training examples.
type DatasetWriter interface {
	Exists(path string) bool
	WriteExamples(path string, examples []domain.TrainingExample) error
}

// ReviewExporter writes artifacts meant for manual inspection.
type ReviewExporter interface {
	Export(ctx context.Context, sample []domain.TrainingExample, rejections []domain.Rejection) error
}

// PromptArchive stores rendered classifier prompts.
type PromptArchive interface {
	Save(articleID int64, prompt string) error
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// RunMetrics records pipeline counters.
type RunMetrics interface {
	ObserveFilter(stage string)
	AddFiltered(stage string, n int)
	ObserveClassification(outcome string, seconds float64)
	ObserveRejection(kind domain.ErrorKind)
	ObserveAccepted()
	Flush(summary domain.RunSummary) error
}
