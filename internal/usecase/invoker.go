package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"MICDataset/internal/domain"
	"MICDataset/internal/infrastructure/resilience"
	"MICDataset/internal/ports"
)

// PromptRenderer renders the classifier turns for an article.
type PromptRenderer interface {
	System() string
	ClassifierTurn(article domain.FilteredArticle) (string, error)
}

// Invoker sends one article to the classifier backend under the resilience policy.
type Invoker struct {
	classifier ports.Classifier
	executor   *resilience.Executor
	prompts    PromptRenderer
	archive    ports.PromptArchive
	metrics    ports.RunMetrics
	logger     *slog.Logger
}

// InvokerDeps wires the classifier and its collaborators. Archive and Metrics are optional.
type InvokerDeps struct {
	Classifier ports.Classifier
	Executor   *resilience.Executor
	Prompts    PromptRenderer
	Archive    ports.PromptArchive
	Metrics    ports.RunMetrics
	Logger     *slog.Logger
}

func NewInvoker(deps InvokerDeps) *Invoker {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	executor := deps.Executor
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig(), logger)
	}
	return &Invoker{
		classifier: deps.Classifier,
		executor:   executor,
		prompts:    deps.Prompts,
		archive:    deps.Archive,
		metrics:    metrics,
		logger:     logger,
	}
}

// Invoke returns the raw answer for the article. Failures after retries wrap domain.ErrExternalCallFailure.
func (i *Invoker) Invoke(ctx context.Context, article domain.FilteredArticle) (domain.RawResponse, error) {
	user, err := i.prompts.ClassifierTurn(article)
	if err != nil {
		return domain.RawResponse{}, domain.WrapError(domain.ErrExternalCallFailure, "render prompt", err)
	}
	if i.archive != nil {
		if err := i.archive.Save(article.ID, user); err != nil {
			i.logger.Warn("archive prompt failed", "article_id", article.ID, "error", err)
		}
	}

	req := domain.ClassificationRequest{
		ArticleID: article.ID,
		System:    i.prompts.System(),
		User:      user,
	}

	var payload string
	started := time.Now()
	err = i.executor.Execute(ctx, "classify."+i.classifier.Name(), func(ctx context.Context) error {
		out, err := i.classifier.Classify(ctx, req)
		if err != nil {
			return err
		}
		payload = out
		return nil
	}, resilience.DefaultClassifier)
	elapsed := time.Since(started).Seconds()

	if err != nil {
		outcome := "error"
		if resilience.IsCircuitOpen(err) {
			outcome = "circuit_open"
		} else if errors.Is(err, context.Canceled) {
			outcome = "canceled"
		}
		i.metrics.ObserveClassification(outcome, elapsed)
		return domain.RawResponse{}, domain.WrapError(domain.ErrExternalCallFailure, fmt.Sprintf("classify article %d", article.ID), err)
	}

	i.metrics.ObserveClassification("ok", elapsed)
	i.logger.Debug("article classified", "article_id", article.ID, "backend", i.classifier.Name(), "seconds", elapsed)
	return domain.RawResponse{ArticleID: article.ID, Payload: payload}, nil
}
