package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"MICDataset/internal/domain"
)

type fakeStore struct {
	articles []domain.Article
	excluded int
}

func (s *fakeStore) CountExcluded(ctx context.Context) (int, error) {
	return s.excluded, nil
}

func (s *fakeStore) StreamCandidates(ctx context.Context, fn func(domain.Article) error) error {
	for _, a := range s.articles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) FetchByIDs(ctx context.Context, ids []int64) (map[int64]domain.Article, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := map[int64]domain.Article{}
	for _, a := range s.articles {
		if want[a.ID] {
			out[a.ID] = a
		}
	}
	return out, nil
}

type fakeClassifier struct {
	mu      sync.Mutex
	answers map[int64]string
	errs    map[int64]error
	calls   map[int64]int
}

func newFakeClassifier() *fakeClassifier {
	return &fakeClassifier{answers: map[int64]string{}, errs: map[int64]error{}, calls: map[int64]int{}}
}

func (c *fakeClassifier) Name() string { return "fake" }

func (c *fakeClassifier) Classify(ctx context.Context, req domain.ClassificationRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[req.ArticleID]++
	if err, ok := c.errs[req.ArticleID]; ok {
		return "", err
	}
	answer, ok := c.answers[req.ArticleID]
	if !ok {
		return "", errors.New("no scripted answer")
	}
	return answer, nil
}

func (c *fakeClassifier) callCount(id int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

type memLedger struct {
	mu        sync.Mutex
	responses []domain.ClassificationResponse
	failWith  error
}

func (l *memLedger) ProcessedIDs(ctx context.Context) (map[int64]bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := map[int64]bool{}
	for _, r := range l.responses {
		ids[r.ArticleID] = true
	}
	return ids, nil
}

func (l *memLedger) Append(ctx context.Context, resp domain.ClassificationResponse) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return l.failWith
	}
	l.responses = append(l.responses, resp)
	return nil
}

func (l *memLedger) LoadAll(ctx context.Context) ([]domain.ClassificationResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ClassificationResponse(nil), l.responses...), nil
}

type memRejections struct {
	mu      sync.Mutex
	entries []domain.Rejection
}

func (r *memRejections) ProcessedIDs(ctx context.Context) (map[int64]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := map[int64]bool{}
	for _, e := range r.entries {
		if e.Kind == domain.KindExternalCallFailure || e.Kind == domain.KindDuplicateResponse {
			continue
		}
		ids[e.ArticleID] = true
	}
	return ids, nil
}

func (r *memRejections) Record(ctx context.Context, rejection domain.Rejection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, rejection)
	return nil
}

func (r *memRejections) LoadAll(ctx context.Context) ([]domain.Rejection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Rejection(nil), r.entries...), nil
}

func (r *memRejections) kinds() map[int64][]domain.ErrorKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[int64][]domain.ErrorKind{}
	for _, e := range r.entries {
		out[e.ArticleID] = append(out[e.ArticleID], e.Kind)
	}
	return out
}

type memDataset struct {
	files map[string][]domain.TrainingExample
}

func (d *memDataset) Exists(path string) bool {
	_, ok := d.files[path]
	return ok
}

func (d *memDataset) WriteExamples(path string, examples []domain.TrainingExample) error {
	if d.files == nil {
		d.files = map[string][]domain.TrainingExample{}
	}
	d.files[path] = examples
	return nil
}

type memReview struct {
	sample     []domain.TrainingExample
	rejections []domain.Rejection
}

func (r *memReview) Export(ctx context.Context, sample []domain.TrainingExample, rejections []domain.Rejection) error {
	r.sample = sample
	r.rejections = rejections
	return nil
}

type memNotifier struct {
	digests []string
}

func (n *memNotifier) PublishDigest(ctx context.Context, digest string) error {
	n.digests = append(n.digests, digest)
	return nil
}

func relevantAnswer(id int64) string {
	return fmt.Sprintf("```json\n{\"article_id\": %d, \"is_relevant\": true, \"start_year\": 1990, \"start_month\": 8, "+
		"\"start_day\": 2, \"end_year\": null, \"end_month\": null, \"end_day\": null, \"fatalities_min\": 1, "+
		"\"fatalities_max\": 5, \"countries_suffering_losses\": [\"Kuwait\"], \"countries_causing_losses\": [\"Iraq\"], "+
		"\"explanation\": \"Iraqi forces crossed into Kuwait.\"}\n```", id)
}

func notRelevantObject(id int64) string {
	return fmt.Sprintf("{\"article_id\": %d, \"is_relevant\": false, \"start_year\": null, \"start_month\": null, "+
		"\"start_day\": null, \"end_year\": null, \"end_month\": null, \"end_day\": null, \"fatalities_min\": null, "+
		"\"fatalities_max\": null, \"countries_suffering_losses\": [], \"countries_causing_losses\": [], "+
		"\"explanation\": \"No militarized dispute.\"}", id)
}
