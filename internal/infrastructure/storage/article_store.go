package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"MICDataset/internal/domain"
	"MICDataset/internal/ports"
)

const (
	defaultTable     = "raw.articles"
	defaultBatchSize = 500
)

var articleColumns = []string{"id", "publication_date", "section", "subject", "location", "people", "full_text"}

// ArticleStoreOptions tunes how candidates are read.
type ArticleStoreOptions struct {
	Table     string
	BatchSize int
	// CategoryMarker enables the category gate pushdown when non-empty.
	CategoryMarker string
}

// ArticleStore reads article rows through database/sql with squirrel-built queries.
type ArticleStore struct {
	db        *sql.DB
	dialect   Dialect
	builder   sq.StatementBuilderType
	table     string
	batchSize int
	marker    string
}

var _ ports.ArticleStore = (*ArticleStore)(nil)

// NewArticleStore wires a sql.DB opened with the dialect's driver.
func NewArticleStore(db *sql.DB, dialect Dialect, opts ArticleStoreOptions) *ArticleStore {
	table := strings.TrimSpace(opts.Table)
	if table == "" {
		table = defaultTable
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &ArticleStore{
		db:        db,
		dialect:   dialect,
		builder:   sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
		table:     table,
		batchSize: batch,
		marker:    strings.TrimSpace(opts.CategoryMarker),
	}
}

// Open connects to the article database and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Driver, err)
	}
	return db, nil
}

// CandidateQuery builds one keyset page of the candidate scan.
func (s *ArticleStore) CandidateQuery(afterID int64) (string, []any, error) {
	query := s.builder.
		Select(articleColumns...).
		From(s.table).
		Where(sq.Gt{"id": afterID})

	if s.marker != "" {
		query = query.Where(sq.Or{
			sq.Eq{"section": nil},
			sq.Expr(s.dialect.CategoryExpr, s.marker),
		})
	}

	return query.OrderBy("id").Limit(uint64(s.batchSize)).ToSql()
}

// ExcludedQuery counts the rows the category pushdown keeps out of the candidate scan.
func (s *ArticleStore) ExcludedQuery() (string, []any, error) {
	return s.builder.
		Select("COUNT(*)").
		From(s.table).
		Where(sq.And{
			sq.NotEq{"section": nil},
			sq.Expr("NOT ("+s.dialect.CategoryExpr+")", s.marker),
		}).
		ToSql()
}

// CountExcluded returns how many rows the pushed-down category gate rejects.
// It is zero when pushdown is disabled.
func (s *ArticleStore) CountExcluded(ctx context.Context) (int, error) {
	if s.db == nil || s.marker == "" {
		return 0, nil
	}
	query, args, err := s.ExcludedQuery()
	if err != nil {
		return 0, fmt.Errorf("build excluded query: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count excluded articles: %w", err)
	}
	return n, nil
}

// StreamCandidates pages through the table in id order and calls fn for each row.
func (s *ArticleStore) StreamCandidates(ctx context.Context, fn func(domain.Article) error) error {
	if s.db == nil {
		return fmt.Errorf("article store is not configured")
	}

	afterID := int64(-1)
	for {
		query, args, err := s.CandidateQuery(afterID)
		if err != nil {
			return fmt.Errorf("build candidate query: %w", err)
		}

		page, err := s.query(ctx, query, args)
		if err != nil {
			return err
		}

		for _, article := range page {
			if err := fn(article); err != nil {
				return err
			}
			afterID = article.ID
		}

		if len(page) < s.batchSize {
			return nil
		}
	}
}

// FetchByIDs loads the given articles keyed by id. Unknown ids are absent from the result.
func (s *ArticleStore) FetchByIDs(ctx context.Context, ids []int64) (map[int64]domain.Article, error) {
	result := make(map[int64]domain.Article, len(ids))
	if s.db == nil || len(ids) == 0 {
		return result, nil
	}

	for start := 0; start < len(ids); start += s.batchSize {
		end := start + s.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		query, args, err := s.builder.
			Select(articleColumns...).
			From(s.table).
			Where(sq.Eq{"id": ids[start:end]}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build fetch query: %w", err)
		}

		page, err := s.query(ctx, query, args)
		if err != nil {
			return nil, err
		}
		for _, article := range page {
			result[article.ID] = article
		}
	}

	return result, nil
}

func (s *ArticleStore) query(ctx context.Context, query string, args []any) ([]domain.Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}

	var page []domain.Article
	for rows.Next() {
		var article domain.Article
		var date, section, subject, location, people, fullText sql.NullString
		if err := rows.Scan(&article.ID, &date, &section, &subject, &location, &people, &fullText); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan article: %w", err)
		}
		article.PublicationDate = date.String
		article.Section = nullable(section)
		article.Subject = nullable(subject)
		article.Location = nullable(location)
		article.People = nullable(people)
		article.FullText = nullable(fullText)
		page = append(page, article)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return page, nil
}

func nullable(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
