package dataset

import (
	"math/rand/v2"
	"sort"

	"MICDataset/internal/domain"
)

// Sample draws size examples uniformly without replacement. The same seed and input
// always yield the same sample, returned in ascending article_id order.
func Sample(examples []domain.TrainingExample, size int, seed uint64) []domain.TrainingExample {
	if size <= 0 || len(examples) == 0 {
		return nil
	}
	if size >= len(examples) {
		out := append([]domain.TrainingExample(nil), examples...)
		sortByID(out)
		return out
	}

	ordered := append([]domain.TrainingExample(nil), examples...)
	sortByID(ordered)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	idx := make([]int, len(ordered))
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < size; i++ {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}

	out := make([]domain.TrainingExample, 0, size)
	for _, i := range idx[:size] {
		out = append(out, ordered[i])
	}
	sortByID(out)
	return out
}

func sortByID(examples []domain.TrainingExample) {
	sort.SliceStable(examples, func(i, j int) bool { return examples[i].ArticleID < examples[j].ArticleID })
}
