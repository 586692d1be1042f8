package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"MICDataset/internal/domain"
	"MICDataset/internal/ports"
)

// ResponseLedger appends accepted responses to a JSONL file keyed by article_id.
type ResponseLedger struct {
	file   *jsonlFile
	logger *slog.Logger
}

var _ ports.ResponseLedger = (*ResponseLedger)(nil)

// NewResponseLedger binds the ledger to its output path.
func NewResponseLedger(path string, logger *slog.Logger) *ResponseLedger {
	return &ResponseLedger{file: newJSONLFile(path), logger: logger}
}

// ProcessedIDs returns the article ids already present in the ledger.
func (l *ResponseLedger) ProcessedIDs(ctx context.Context) (map[int64]bool, error) {
	ids := map[int64]bool{}
	skipped, err := l.file.scan(func(line []byte) error {
		var key struct {
			ArticleID *int64 `json:"article_id"`
		}
		if err := json.Unmarshal(line, &key); err != nil {
			return err
		}
		if key.ArticleID == nil {
			return fmt.Errorf("record without article_id")
		}
		ids[*key.ArticleID] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load processed responses: %w", err)
	}
	l.warnSkipped(skipped)
	return ids, nil
}

// Append writes one accepted response.
func (l *ResponseLedger) Append(ctx context.Context, resp domain.ClassificationResponse) error {
	if err := l.file.append(resp); err != nil {
		return fmt.Errorf("append response %d: %w", resp.ArticleID, err)
	}
	return nil
}

// LoadAll returns every accepted response in file order.
func (l *ResponseLedger) LoadAll(ctx context.Context) ([]domain.ClassificationResponse, error) {
	var out []domain.ClassificationResponse
	skipped, err := l.file.scan(func(line []byte) error {
		var resp domain.ClassificationResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return err
		}
		out = append(out, resp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	l.warnSkipped(skipped)
	return out, nil
}

func (l *ResponseLedger) warnSkipped(skipped int) {
	if skipped > 0 && l.logger != nil {
		l.logger.Warn("skipped unreadable ledger lines", "path", l.file.path, "lines", skipped)
	}
}

// RejectionLog appends rejected payloads for manual review.
type RejectionLog struct {
	file          *jsonlFile
	retryRejected bool
	logger        *slog.Logger
}

var _ ports.RejectionLog = (*RejectionLog)(nil)

// NewRejectionLog binds the log to its path. With retryRejected, ProcessedIDs reports nothing
// so every rejected article is classified again.
func NewRejectionLog(path string, retryRejected bool, logger *slog.Logger) *RejectionLog {
	return &RejectionLog{file: newJSONLFile(path), retryRejected: retryRejected, logger: logger}
}

// ProcessedIDs returns articles whose rejection is final. External call failures and
// duplicates are not final: the former are retried, the latter already have an accepted response.
func (r *RejectionLog) ProcessedIDs(ctx context.Context) (map[int64]bool, error) {
	ids := map[int64]bool{}
	if r.retryRejected {
		return ids, nil
	}
	rejections, err := r.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, rej := range rejections {
		switch rej.Kind {
		case domain.KindExternalCallFailure, domain.KindDuplicateResponse:
			continue
		}
		ids[rej.ArticleID] = true
	}
	return ids, nil
}

// Record appends one rejection.
func (r *RejectionLog) Record(ctx context.Context, rejection domain.Rejection) error {
	if err := r.file.append(rejection); err != nil {
		return fmt.Errorf("record rejection %d: %w", rejection.ArticleID, err)
	}
	return nil
}

// LoadAll returns every rejection in file order.
func (r *RejectionLog) LoadAll(ctx context.Context) ([]domain.Rejection, error) {
	var out []domain.Rejection
	skipped, err := r.file.scan(func(line []byte) error {
		var rej domain.Rejection
		if err := json.Unmarshal(line, &rej); err != nil {
			return err
		}
		out = append(out, rej)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load rejections: %w", err)
	}
	if skipped > 0 && r.logger != nil {
		r.logger.Warn("skipped unreadable rejection lines", "path", r.file.path, "lines", skipped)
	}
	return out, nil
}
