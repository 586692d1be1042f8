package usecase

import (
	"context"
	"testing"
	"time"

	"MICDataset/internal/domain"
	"MICDataset/internal/validator"
)

func TestAggregatorFirstAcceptedWins(t *testing.T) {
	t.Parallel()

	ledger := &memLedger{}
	rejections := &memRejections{}
	agg := NewAggregator("run-1", ledger, rejections, nil, nil)
	agg.Seed(map[int64]bool{9: true})

	ctx := context.Background()
	first := validator.Outcome{Response: domain.ClassificationResponse{ArticleID: 1, Explanation: "a"}}
	second := validator.Outcome{Response: domain.ClassificationResponse{ArticleID: 1, Explanation: "b"}}
	bad := validator.Outcome{Err: domain.Violation(domain.ErrSchemaViolation, "missing keys")}

	if err := agg.Collect(ctx, domain.RawResponse{ArticleID: 1, Payload: "[...]"}, []validator.Outcome{first, bad, second}); err != nil {
		t.Fatalf("collect: %v", err)
	}
	resumed := validator.Outcome{Response: domain.ClassificationResponse{ArticleID: 9}}
	if err := agg.Collect(ctx, domain.RawResponse{ArticleID: 9}, []validator.Outcome{resumed}); err != nil {
		t.Fatalf("collect: %v", err)
	}

	if len(ledger.responses) != 1 || ledger.responses[0].Explanation != "a" {
		t.Fatalf("unexpected ledger: %+v", ledger.responses)
	}

	summary := domain.NewRunSummary("run-1", time.Time{})
	agg.Apply(&summary)
	if summary.Accepted != 1 {
		t.Fatalf("unexpected accepted count: %d", summary.Accepted)
	}
	if summary.Rejected[domain.KindSchemaViolation] != 1 || summary.Rejected[domain.KindDuplicateResponse] != 2 {
		t.Fatalf("unexpected rejections: %v", summary.Rejected)
	}

	entries, _ := rejections.LoadAll(ctx)
	for _, e := range entries {
		if e.RunID != "run-1" || e.Reason == "" || e.At.IsZero() {
			t.Fatalf("incomplete rejection record: %+v", e)
		}
	}
}

func TestAggregatorSkipIsNotCounted(t *testing.T) {
	t.Parallel()

	rejections := &memRejections{}
	agg := NewAggregator("run-2", &memLedger{}, rejections, nil, nil)
	if err := agg.Skip(context.Background(), 4, domain.Violation(domain.ErrSchemaViolation, "missing article text")); err != nil {
		t.Fatalf("skip: %v", err)
	}

	summary := domain.NewRunSummary("run-2", time.Time{})
	agg.Apply(&summary)
	if summary.TotalRejected() != 0 || len(rejections.entries) != 1 {
		t.Fatalf("skip must be logged but not counted: %v %d", summary.Rejected, len(rejections.entries))
	}
}
