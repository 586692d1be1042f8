package app

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"MICDataset/internal/config"
	"MICDataset/internal/domain"
)

var articleIDPattern = regexp.MustCompile(`Article ID: (\d+)`)

func seedDatabase(t *testing.T, path string) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE articles (
		id INTEGER PRIMARY KEY,
		publication_date TEXT,
		section TEXT,
		subject TEXT,
		location TEXT,
		people TEXT,
		full_text TEXT
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	rows := [][]any{
		{1, "Aug 2, 1990", "Foreign Desk", "WAR AND REVOLUTION;ARMAMENT, DEFENSE AND MILITARY FORCES", "IRAQ;KUWAIT", nil, "<p>Iraqi troops crossed into Kuwait.</p>"},
		{2, "Aug 2, 1990", "Sports Desk", "BASEBALL", "NEW YORK CITY", nil, "Yankees lose."},
		{3, "Jan 15, 2017", nil, "WAR AND REVOLUTION", "SYRIA", "Assad, Bashar al-", "Shelling near Aleppo."},
		{4, "Jan 15, 2017", "Foreign Desk", "WAR AND REVOLUTION", "NEW YORK CITY", nil, "Domestic only."},
	}
	for _, r := range rows {
		if _, err := db.Exec(`INSERT INTO articles VALUES (?, ?, ?, ?, ?, ?, ?)`, r...); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func fakeCompletions(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil || len(req.Messages) != 2 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		match := articleIDPattern.FindStringSubmatch(req.Messages[1].Content)
		if match == nil {
			http.Error(w, "no article id", http.StatusBadRequest)
			return
		}
		content := fmt.Sprintf(`{"events": [{"article_id": %s, "is_relevant": false, "start_year": null, "start_month": null, `+
			`"start_day": null, "end_year": null, "end_month": null, "end_day": null, "fatalities_min": null, `+
			`"fatalities_max": null, "countries_suffering_losses": [], "countries_causing_losses": [], `+
			`"explanation": "No interstate incident."}]}`, match[1])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}, "finish_reason": "stop"}},
		})
	}))
}

func TestApplicationRunsAgainstSQLite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "articles.db")
	seedDatabase(t, dbPath)

	server := fakeCompletions(t)
	defer server.Close()

	rulesPath := filepath.Join(dir, "rules.yaml")
	rulesYAML := "excludable_subjects: [BASEBALL]\nrelevant_subjects: [WAR AND REVOLUTION]\ndomestic_locations: [NEW YORK CITY]\n"
	if err := os.WriteFile(rulesPath, []byte(rulesYAML), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	cfg := config.LoadFrom("")
	cfg.Database = config.DatabaseConfig{Driver: "sqlite3", DSN: dbPath, Table: "articles", BatchSize: 2}
	cfg.Rules.Path = rulesPath
	cfg.LLM.Backend = "chatgpt"
	cfg.LLM.BaseURL = server.URL + "/v1"
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.RatePerSecond = 0
	cfg.LLM.Workers = 2
	cfg.Output = config.OutputConfig{
		Responses:  filepath.Join(dir, "responses.jsonl"),
		Rejections: filepath.Join(dir, "rejections.jsonl"),
		Dataset:    filepath.Join(dir, "dataset.jsonl"),
		Sample:     filepath.Join(dir, "sample.jsonl"),
		PromptsDir: filepath.Join(dir, "prompts"),
		Review:     filepath.Join(dir, "review.xlsx"),
		Metrics:    filepath.Join(dir, "mic.prom"),
	}
	cfg.Sample = config.SampleConfig{Size: 1, Seed: 3}
	cfg.Notifications = config.NotificationConfig{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	application, err := New(context.Background(), cfg, Flags{}, logger)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	defer application.Close()

	summary, err := application.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Scanned != 4 || summary.FilteredOut != 2 || summary.Passed != 2 || summary.Accepted != 2 || summary.Examples != 2 || summary.Sampled != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	f, err := os.Open(cfg.Output.Dataset)
	if err != nil {
		t.Fatalf("open dataset: %v", err)
	}
	defer f.Close()
	var ids []int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var example domain.TrainingExample
		if err := json.Unmarshal(scanner.Bytes(), &example); err != nil {
			t.Fatalf("decode example: %v", err)
		}
		var resp domain.ClassificationResponse
		if err := json.Unmarshal([]byte(example.Conversations[2].Content), &resp); err != nil {
			t.Fatalf("decode assistant turn: %v", err)
		}
		ids = append(ids, resp.ArticleID)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("unexpected dataset ids: %v", ids)
	}

	for _, path := range []string{cfg.Output.Review, cfg.Output.Metrics, filepath.Join(cfg.Output.PromptsDir, "article_3.txt")} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected artifact %s: %v", path, err)
		}
	}

	second, err := New(context.Background(), cfg, Flags{}, logger)
	if err != nil {
		t.Fatalf("second application: %v", err)
	}
	defer second.Close()
	summary, err = second.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.AlreadyDone != 2 || summary.Classified != 0 || summary.DatasetBuilt {
		t.Fatalf("second run must resume and keep the dataset: %+v", summary)
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "articles.db")
	seedDatabase(t, dbPath)

	cfg := config.LoadFrom("")
	cfg.Database = config.DatabaseConfig{Driver: "sqlite3", DSN: dbPath, Table: "articles"}
	cfg.LLM.Backend = "ollama"

	if _, err := New(context.Background(), cfg, Flags{}, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
