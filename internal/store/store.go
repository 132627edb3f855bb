package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/amishk599/jobalert/internal/model"
)

// SQLStore is the ledger: subscribers, postings and the sent-notification
// record, on either sqlite or postgres. Every method takes a pooled
// connection for the duration of the call only.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// Stats is a snapshot of row counts.
type Stats struct {
	Subscribers       int
	ActiveSubscribers int
	Postings          int
	RecentPostings    int // acquired within the window passed to Stats
	Deliveries        int
}

// Open connects to the database for driver ("sqlite" or "postgres"),
// verifies the connection and creates missing tables.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, d.dsn(dsn))
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", d.driver, err)
	}
	if d.driver == DriverSQLite {
		// sqlite allows one writer; a single pooled connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s db: %w", d.driver, err)
	}

	s := &SQLStore{db: db, dialect: d}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore opens (or creates) a sqlite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	return Open(context.Background(), DriverSQLite, dbPath)
}

// Migrate creates the ledger tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) q(query string) string {
	return s.dialect.rebind(query)
}

// UpsertSubscriber creates or updates a subscriber and replaces its topics.
func (s *SQLStore) UpsertSubscriber(ctx context.Context, sub model.Subscriber) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving subscriber %d: %w", sub.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO subscribers (id, username, first_name, category, mode, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username   = excluded.username,
			first_name = excluded.first_name,
			category   = excluded.category,
			mode       = excluded.mode,
			active     = excluded.active,
			updated_at = excluded.updated_at`),
		sub.ID, sub.Username, sub.FirstName, string(sub.Category), string(sub.Mode), sub.Active, now, now,
	)
	if err != nil {
		return fmt.Errorf("saving subscriber %d: %w", sub.ID, err)
	}

	if _, err := tx.ExecContext(ctx, s.q("DELETE FROM subscriber_topics WHERE subscriber_id = ?"), sub.ID); err != nil {
		return fmt.Errorf("clearing topics for %d: %w", sub.ID, err)
	}
	for _, topic := range sub.Topics {
		if _, err := tx.ExecContext(ctx, s.q("INSERT INTO subscriber_topics (subscriber_id, topic) VALUES (?, ?)"), sub.ID, topic); err != nil {
			return fmt.Errorf("saving topic %q for %d: %w", topic, sub.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving subscriber %d: %w", sub.ID, err)
	}
	return nil
}

// Subscriber loads one subscriber with its topics.
func (s *SQLStore) Subscriber(ctx context.Context, id int64) (model.Subscriber, error) {
	var (
		sub                  model.Subscriber
		category, mode       string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, username, first_name, category, mode, active, created_at, updated_at
		FROM subscribers WHERE id = ?`), id,
	).Scan(&sub.ID, &sub.Username, &sub.FirstName, &category, &mode, &sub.Active, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subscriber{}, fmt.Errorf("subscriber %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Subscriber{}, fmt.Errorf("loading subscriber %d: %w", id, err)
	}
	sub.Category = model.Category(category)
	sub.Mode = model.Mode(mode)
	sub.CreatedAt = time.Unix(createdAt, 0)
	sub.UpdatedAt = time.Unix(updatedAt, 0)

	topics, err := s.topics(ctx, id)
	if err != nil {
		return model.Subscriber{}, err
	}
	sub.Topics = topics
	return sub, nil
}

func (s *SQLStore) topics(ctx context.Context, id int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q("SELECT topic FROM subscriber_topics WHERE subscriber_id = ? ORDER BY topic"), id)
	if err != nil {
		return nil, fmt.Errorf("loading topics for %d: %w", id, err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning topic for %d: %w", id, err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// SetActive flips a subscriber's active flag. Subscribers are never hard
// deleted while ledger rows reference them.
func (s *SQLStore) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, s.q("UPDATE subscribers SET active = ?, updated_at = ? WHERE id = ?"), active, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("updating subscriber %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating subscriber %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("subscriber %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// ActiveSubscriberIDs returns the ids of every active subscriber.
func (s *SQLStore) ActiveSubscriberIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM subscribers WHERE active ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing active subscribers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning subscriber id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ActiveSubscribers returns every active subscriber with topics.
func (s *SQLStore) ActiveSubscribers(ctx context.Context) ([]model.Subscriber, error) {
	ids, err := s.ActiveSubscriberIDs(ctx)
	if err != nil {
		return nil, err
	}
	subs := make([]model.Subscriber, 0, len(ids))
	for _, id := range ids {
		sub, err := s.Subscriber(ctx, id)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// UpsertPostings writes postings in one transaction, keyed by
// (title, organization, source). A re-acquired posting gets its location,
// description and freshness updated and its acquisition time refreshed.
// Returns the number of rows written.
func (s *SQLStore) UpsertPostings(ctx context.Context, postings []model.Posting, at time.Time) (int, error) {
	if len(postings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("saving postings: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.q(`
		INSERT INTO postings (title, organization, location, category, mode, topic, url, description, source, freshness, acquired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (title, organization, source) DO UPDATE SET
			location    = excluded.location,
			description = excluded.description,
			freshness   = excluded.freshness,
			acquired_at = excluded.acquired_at`))
	if err != nil {
		return 0, fmt.Errorf("preparing posting upsert: %w", err)
	}
	defer stmt.Close()

	saved := 0
	for _, p := range postings {
		_, err := stmt.ExecContext(ctx,
			p.Title, p.Organization, p.Location, string(p.Category), string(p.Mode), p.Topic,
			p.URL, p.Description, p.Source, p.Freshness, at.Unix(),
		)
		if err != nil {
			return 0, fmt.Errorf("saving posting %q from %s: %w", p.Title, p.Source, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing postings: %w", err)
	}
	return saved, nil
}

// DistinctCombinations groups active subscribers by (category, mode) and
// returns one combination per group with the union of their topics.
func (s *SQLStore) DistinctCombinations(ctx context.Context) ([]model.Combination, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT s.category, s.mode, t.topic
		FROM subscribers s
		INNER JOIN subscriber_topics t ON t.subscriber_id = s.id
		WHERE s.active
		ORDER BY s.category, s.mode, t.topic`)
	if err != nil {
		return nil, fmt.Errorf("querying combinations: %w", err)
	}
	defer rows.Close()

	var combos []model.Combination
	for rows.Next() {
		var category, mode, topic string
		if err := rows.Scan(&category, &mode, &topic); err != nil {
			return nil, fmt.Errorf("scanning combination: %w", err)
		}
		n := len(combos)
		if n > 0 && string(combos[n-1].Category) == category && string(combos[n-1].Mode) == mode {
			combos[n-1].Topics = append(combos[n-1].Topics, topic)
			continue
		}
		combos = append(combos, model.Combination{
			Category: model.Category(category),
			Mode:     model.Mode(mode),
			Topics:   []string{topic},
		})
	}
	return combos, rows.Err()
}

const postingColumns = "p.id, p.title, p.organization, p.location, p.category, p.mode, p.topic, p.url, p.description, p.source, p.freshness, p.acquired_at"

// EligiblePostings returns up to limit postings for the subscriber that
// match its category, mode (wildcard on either side) and topics, were
// acquired at or after since, and have no delivery record. Newest first.
func (s *SQLStore) EligiblePostings(ctx context.Context, subscriberID int64, limit int, since time.Time, wildcard model.Mode) ([]model.Posting, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+postingColumns+`
		FROM postings p
		INNER JOIN subscriber_topics t ON t.topic = p.topic
		INNER JOIN subscribers s ON s.id = t.subscriber_id
		LEFT JOIN deliveries d ON d.posting_id = p.id AND d.subscriber_id = s.id
		WHERE s.id = ?
			AND p.category = s.category
			AND (p.mode = s.mode OR s.mode = ? OR p.mode = ?)
			AND d.posting_id IS NULL
			AND p.acquired_at >= ?
		ORDER BY p.acquired_at DESC, p.id DESC
		LIMIT ?`),
		subscriberID, string(wildcard), string(wildcard), since.Unix(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying eligible postings for %d: %w", subscriberID, err)
	}
	defer rows.Close()

	var postings []model.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning posting for %d: %w", subscriberID, err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// RecentPostings lists the newest postings regardless of subscriber.
func (s *SQLStore) RecentPostings(ctx context.Context, limit int) ([]model.Posting, error) {
	rows, err := s.db.QueryContext(ctx, s.q("SELECT "+postingColumns+" FROM postings p ORDER BY p.acquired_at DESC, p.id DESC LIMIT ?"), limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent postings: %w", err)
	}
	defer rows.Close()

	var postings []model.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

func scanPosting(rows *sql.Rows) (model.Posting, error) {
	var (
		p              model.Posting
		category, mode string
		acquiredAt     int64
	)
	err := rows.Scan(&p.ID, &p.Title, &p.Organization, &p.Location, &category, &mode, &p.Topic,
		&p.URL, &p.Description, &p.Source, &p.Freshness, &acquiredAt)
	if err != nil {
		return model.Posting{}, err
	}
	p.Category = model.Category(category)
	p.Mode = model.Mode(mode)
	p.AcquiredAt = time.Unix(acquiredAt, 0)
	return p, nil
}

// HasDelivery reports whether the pair is already in the sent ledger.
func (s *SQLStore) HasDelivery(ctx context.Context, subscriberID, postingID int64) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, s.q("SELECT 1 FROM deliveries WHERE subscriber_id = ? AND posting_id = ?"), subscriberID, postingID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking delivery %d/%d: %w", subscriberID, postingID, err)
	}
	return true, nil
}

// MarkSent records the pairs as delivered in one transaction. Re-marking a
// pair only refreshes its timestamp.
func (s *SQLStore) MarkSent(ctx context.Context, keys []model.DeliveryKey, at time.Time) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("marking %d deliveries: %w", len(keys), err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.q(`
		INSERT INTO deliveries (subscriber_id, posting_id, sent_at) VALUES (?, ?, ?)
		ON CONFLICT (subscriber_id, posting_id) DO UPDATE SET sent_at = excluded.sent_at`))
	if err != nil {
		return fmt.Errorf("preparing delivery upsert: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k.SubscriberID, k.PostingID, at.Unix()); err != nil {
			return fmt.Errorf("marking delivery %d/%d: %w", k.SubscriberID, k.PostingID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing deliveries: %w", err)
	}
	return nil
}

// DeleteStalePostings removes postings acquired before the cutoff. Their
// delivery records go with them through the cascade.
func (s *SQLStore) DeleteStalePostings(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q("DELETE FROM postings WHERE acquired_at < ?"), before.Unix())
	if err != nil {
		return 0, fmt.Errorf("deleting postings older than %s: %w", before.Format(time.RFC3339), err)
	}
	return res.RowsAffected()
}

// DeleteOrphanDeliveries removes delivery records whose posting is gone.
func (s *SQLStore) DeleteOrphanDeliveries(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM deliveries WHERE posting_id NOT IN (SELECT id FROM postings)")
	if err != nil {
		return 0, fmt.Errorf("deleting orphan deliveries: %w", err)
	}
	return res.RowsAffected()
}

// Stats counts rows; postings acquired at or after recentSince are also
// counted separately.
func (s *SQLStore) Stats(ctx context.Context, recentSince time.Time) (Stats, error) {
	var st Stats
	counts := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&st.Subscribers, "SELECT COUNT(*) FROM subscribers", nil},
		{&st.ActiveSubscribers, "SELECT COUNT(*) FROM subscribers WHERE active", nil},
		{&st.Postings, "SELECT COUNT(*) FROM postings", nil},
		{&st.RecentPostings, "SELECT COUNT(*) FROM postings WHERE acquired_at >= ?", []any{recentSince.Unix()}},
		{&st.Deliveries, "SELECT COUNT(*) FROM deliveries", nil},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, s.q(c.query), c.args...).Scan(c.dst); err != nil {
			return Stats{}, fmt.Errorf("counting rows: %w", err)
		}
	}
	return st, nil
}
