package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"MICDataset/internal/domain"
	"MICDataset/internal/ports"
)

// DatasetFiles writes training examples as JSONL, one conversation per line.
// Files are written to a temporary sibling and renamed so a reader never sees a partial dataset.
type DatasetFiles struct{}

var _ ports.DatasetWriter = DatasetFiles{}

// Exists reports whether a non-empty artifact is already present.
func (DatasetFiles) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// WriteExamples replaces path with the given examples.
func (DatasetFiles) WriteExamples(path string, examples []domain.TrainingExample) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, example := range examples {
		if err := enc.Encode(example); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("encode example %d: %w", example.ArticleID, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// PromptFiles archives rendered classifier prompts, one file per article.
type PromptFiles struct {
	dir string
}

var _ ports.PromptArchive = (*PromptFiles)(nil)

// NewPromptFiles returns an archive rooted at dir.
func NewPromptFiles(dir string) *PromptFiles {
	return &PromptFiles{dir: dir}
}

// Save writes the prompt for one article, replacing an earlier one.
func (p *PromptFiles) Save(articleID int64, prompt string) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create prompt dir: %w", err)
	}
	name := filepath.Join(p.dir, "article_"+strconv.FormatInt(articleID, 10)+".txt")
	if err := os.WriteFile(name, []byte(prompt), 0o644); err != nil {
		return fmt.Errorf("write prompt %d: %w", articleID, err)
	}
	return nil
}
