package storage

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"

	"MICDataset/internal/domain"
)

func TestCandidateQueryPushesDownCategory(t *testing.T) {
	t.Parallel()

	duck, err := DialectFor("duckdb")
	if err != nil {
		t.Fatalf("dialect: %v", err)
	}
	store := NewArticleStore(nil, duck, ArticleStoreOptions{BatchSize: 50, CategoryMarker: "Fore"})

	query, args, err := store.CandidateQuery(10)
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	if !strings.HasPrefix(query, "SELECT id, publication_date, section, subject, location, people, full_text FROM raw.articles WHERE id > ?") {
		t.Fatalf("unexpected query: %s", query)
	}
	if !strings.Contains(query, "(section IS NULL OR strpos(") || !strings.HasSuffix(query, "ORDER BY id LIMIT 50") {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 2 || args[0] != int64(10) || args[1] != "Fore" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestCandidateQueryPostgresPlaceholders(t *testing.T) {
	t.Parallel()

	pg, err := DialectFor("postgres")
	if err != nil {
		t.Fatalf("dialect: %v", err)
	}
	store := NewArticleStore(nil, pg, ArticleStoreOptions{Table: "articles", CategoryMarker: "Fore"})

	query, _, err := store.CandidateQuery(0)
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	if !strings.Contains(query, "id > $1") || !strings.Contains(query, "$2) > 0") {
		t.Fatalf("unexpected query: %s", query)
	}
}

func TestCandidateQueryWithoutPushdown(t *testing.T) {
	t.Parallel()

	duck, _ := DialectFor("duckdb")
	store := NewArticleStore(nil, duck, ArticleStoreOptions{Table: "articles"})

	query, args, err := store.CandidateQuery(0)
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	if strings.Contains(query, "section IS NULL") || len(args) != 1 {
		t.Fatalf("unexpected pushdown: %s %v", query, args)
	}
}

func TestExcludedQueryNegatesPushdown(t *testing.T) {
	t.Parallel()

	duck, _ := DialectFor("duckdb")
	store := NewArticleStore(nil, duck, ArticleStoreOptions{Table: "articles", CategoryMarker: "Fore"})

	query, args, err := store.ExcludedQuery()
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	if !strings.HasPrefix(query, "SELECT COUNT(*) FROM articles WHERE (section IS NOT NULL AND NOT (strpos(") {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 1 || args[0] != "Fore" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestDialectForUnknown(t *testing.T) {
	t.Parallel()

	if _, err := DialectFor("oracle"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestStreamCandidatesPagesWithSQLMock(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	duck, _ := DialectFor("duckdb")
	store := NewArticleStore(db, duck, ArticleStoreOptions{BatchSize: 2, CategoryMarker: "Fore"})

	prefix := regexp.QuoteMeta("SELECT id, publication_date, section, subject, location, people, full_text FROM raw.articles WHERE id > ?")
	mock.ExpectQuery(prefix).
		WithArgs(int64(-1), "Fore").
		WillReturnRows(sqlmock.NewRows(articleColumns).
			AddRow(int64(1), "Jan 2, 1990", nil, "War", "Iraq", nil, "text one").
			AddRow(int64(4), "Jan 3, 1990", "Foreign Desk", nil, nil, "Bush, George", nil))
	mock.ExpectQuery(prefix).
		WithArgs(int64(4), "Fore").
		WillReturnRows(sqlmock.NewRows(articleColumns).
			AddRow(int64(9), "Jan 4, 1990", nil, nil, "Kuwait", nil, "text three"))

	var got []domain.Article
	err = store.StreamCandidates(context.Background(), func(a domain.Article) error {
		got = append(got, a)
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	if len(got) != 3 || got[2].ID != 9 {
		t.Fatalf("unexpected articles: %+v", got)
	}
	if got[0].Section != nil || got[0].Subject == nil || *got[0].Subject != "War" {
		t.Fatalf("unexpected nullable mapping: %+v", got[0])
	}
	if got[1].FullText != nil || got[1].People == nil {
		t.Fatalf("unexpected nullable mapping: %+v", got[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStreamCandidatesQueryError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	duck, _ := DialectFor("duckdb")
	store := NewArticleStore(db, duck, ArticleStoreOptions{})
	mock.ExpectQuery("SELECT").WillReturnError(sql.ErrConnDone)

	err = store.StreamCandidates(context.Background(), func(domain.Article) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "query articles") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)

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

	rows := []struct {
		id      int64
		section any
	}{
		{1, nil},
		{2, "Foreign Desk"},
		{3, "Sports Desk"},
		{4, "F o r e i g n\tDesk"},
		{5, "foreign desk"},
		{6, "Metro"},
		{7, nil},
		{8, "Fo\vre\fign"},
		{9, "Fo\u00a0reign"},
	}
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO articles (id, publication_date, section, subject, location, people, full_text)
			VALUES (?, 'Jan 2, 1990', ?, 'War', 'Iraq', NULL, 'text')`, r.id, r.section)
		if err != nil {
			t.Fatalf("insert %d: %v", r.id, err)
		}
	}
	return db
}

func TestStreamCandidatesSQLite(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	defer db.Close()

	lite, _ := DialectFor("sqlite3")
	store := NewArticleStore(db, lite, ArticleStoreOptions{Table: "articles", BatchSize: 2, CategoryMarker: "Fore"})

	var ids []int64
	err := store.StreamCandidates(context.Background(), func(a domain.Article) error {
		ids = append(ids, a.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	want := []int64{1, 2, 4, 7, 8}
	if len(ids) != len(want) {
		t.Fatalf("unexpected ids: %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("unexpected ids: %v", ids)
		}
	}
}

func TestFetchByIDsSQLite(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	defer db.Close()

	lite, _ := DialectFor("sqlite")
	store := NewArticleStore(db, lite, ArticleStoreOptions{Table: "articles", BatchSize: 2})

	got, err := store.FetchByIDs(context.Background(), []int64{3, 5, 6, 42})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("unexpected count: %d", len(got))
	}
	if a, ok := got[3]; !ok || a.Section == nil || *a.Section != "Sports Desk" || a.People != nil {
		t.Fatalf("unexpected article: %+v", a)
	}
	if _, ok := got[42]; ok {
		t.Fatalf("unknown id must be absent")
	}
}

func TestCountExcludedSQLite(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	defer db.Close()

	lite, _ := DialectFor("sqlite3")
	store := NewArticleStore(db, lite, ArticleStoreOptions{Table: "articles", CategoryMarker: "Fore"})

	n, err := store.CountExcluded(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Fatalf("unexpected excluded count: %d", n)
	}

	off := NewArticleStore(db, lite, ArticleStoreOptions{Table: "articles"})
	if n, err := off.CountExcluded(context.Background()); err != nil || n != 0 {
		t.Fatalf("pushdown disabled must exclude nothing: %d %v", n, err)
	}
}
