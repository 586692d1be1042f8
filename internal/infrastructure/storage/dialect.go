package storage

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect captures the SQL differences between the supported article-store drivers.
type Dialect struct {
	Driver      string
	Placeholder sq.PlaceholderFormat
	// CategoryExpr is a boolean SQL expression with one placeholder for the section marker.
	// It strips the same whitespace as filter.StripSectionSpace.
	CategoryExpr string
}

var dialects = map[string]Dialect{
	"duckdb": {
		Driver:       "duckdb",
		Placeholder:  sq.Question,
		CategoryExpr: `strpos(regexp_replace(section, '[ \t\n\v\f\r]', '', 'g'), ?) > 0`,
	},
	"sqlite3": {
		Driver:       "sqlite3",
		Placeholder:  sq.Question,
		CategoryExpr: `instr(replace(replace(replace(replace(replace(replace(section, ' ', ''), char(9), ''), char(10), ''), char(11), ''), char(12), ''), char(13), ''), ?) > 0`,
	},
	"pgx": {
		Driver:       "pgx",
		Placeholder:  sq.Dollar,
		CategoryExpr: `strpos(regexp_replace(section, '[ \t\n\v\f\r]', '', 'g'), ?) > 0`,
	},
}

// DialectFor resolves a driver name; "postgres" is accepted as an alias of pgx.
func DialectFor(driver string) (Dialect, error) {
	name := strings.ToLower(strings.TrimSpace(driver))
	if name == "postgres" || name == "postgresql" {
		name = "pgx"
	}
	if name == "sqlite" {
		name = "sqlite3"
	}
	d, ok := dialects[name]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
	return d, nil
}
