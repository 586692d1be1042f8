package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const maxLineBytes = 64 << 20

// jsonlFile is an append-only file of JSON records, one per line.
type jsonlFile struct {
	path string
	mu   sync.Mutex
}

func newJSONLFile(path string) *jsonlFile {
	return &jsonlFile{path: path}
}

// append writes one record. A torn last line left by an interrupted run is closed off first.
func (f *jsonlFile) append(record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	payload = append(payload, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", f.path, err)
	}

	torn, err := f.endsTorn()
	if err != nil {
		return err
	}
	if torn {
		payload = append([]byte{'\n'}, payload...)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	if _, err := file.Write(payload); err != nil {
		_ = file.Close()
		return fmt.Errorf("append %s: %w", f.path, err)
	}
	return file.Close()
}

func (f *jsonlFile) endsTorn() (bool, error) {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", f.path, err)
	}
	if info.Size() == 0 {
		return false, nil
	}

	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read tail of %s: %w", f.path, err)
	}
	return last[0] != '\n', nil
}

// scan passes every well-formed line to fn. Invalid lines and lines fn rejects are counted and skipped.
func (f *jsonlFile) scan(fn func(line []byte) error) (skipped int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			skipped++
			continue
		}
		if err := fn(line); err != nil {
			skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return skipped, fmt.Errorf("scan %s: %w", f.path, err)
	}
	return skipped, nil
}
