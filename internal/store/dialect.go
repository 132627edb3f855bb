package store

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect holds the few places where sqlite and postgres disagree.
type dialect struct {
	driver string
	autoID string // column definition for a generated primary key
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, "":
		return dialect{driver: DriverSQLite, autoID: "INTEGER PRIMARY KEY AUTOINCREMENT"}, nil
	case DriverPostgres:
		return dialect{driver: DriverPostgres, autoID: "BIGSERIAL PRIMARY KEY"}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// rebind rewrites ? placeholders into $n for postgres. Queries in this
// package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// dsn adds the connection pragmas sqlite needs for cascading deletes and
// concurrent readers.
func (d dialect) dsn(dsn string) string {
	if d.driver != DriverSQLite {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (d dialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS subscribers (
			id         BIGINT PRIMARY KEY,
			username   TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			category   TEXT NOT NULL,
			mode       TEXT NOT NULL,
			active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subscriber_topics (
			subscriber_id BIGINT NOT NULL REFERENCES subscribers(id) ON DELETE CASCADE,
			topic         TEXT NOT NULL,
			PRIMARY KEY (subscriber_id, topic)
		)`,
		`CREATE TABLE IF NOT EXISTS postings (
			id           ` + d.autoID + `,
			title        TEXT NOT NULL,
			organization TEXT NOT NULL,
			location     TEXT NOT NULL DEFAULT '',
			category     TEXT NOT NULL,
			mode         TEXT NOT NULL,
			topic        TEXT NOT NULL,
			url          TEXT NOT NULL DEFAULT '',
			description  TEXT NOT NULL DEFAULT '',
			source       TEXT NOT NULL,
			freshness    TEXT NOT NULL DEFAULT '',
			acquired_at  BIGINT NOT NULL,
			UNIQUE (title, organization, source)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_postings_match ON postings (category, topic, acquired_at)`,
		`CREATE TABLE IF NOT EXISTS deliveries (
			subscriber_id BIGINT NOT NULL REFERENCES subscribers(id) ON DELETE CASCADE,
			posting_id    BIGINT NOT NULL REFERENCES postings(id) ON DELETE CASCADE,
			sent_at       BIGINT NOT NULL,
			PRIMARY KEY (subscriber_id, posting_id)
		)`,
	}
}
