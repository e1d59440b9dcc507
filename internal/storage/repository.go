// Package storage persists subscriptions in SQLite or PostgreSQL through
// database/sql. Both dialects share the same queries; placeholders are
// written as ? and rebound for PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"subtrack/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Dialect names the SQL flavour behind a Repository.
type Dialect string

// ErrNotFound is returned when no subscription has the requested id.
var ErrNotFound = errors.New("subscription not found")

// timestampLayout keeps a fixed width so text timestamps sort correctly.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const subscriptionColumns = `id, name, description, amount, currency, billing_cycle_days,
	category, status, start_date, end_date, next_billing_date, color, website, notes,
	created_at, updated_at`

type Repository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := openDB(DialectSQLite, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectSQLite, dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: DialectSQLite}, nil
}

// NewPostgresRepository connects to databaseURL, retrying the first ping
// until ctx is done so the service can start alongside its database.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	db, err := openDB(DialectPostgres, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	retryDelay := time.Second
	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		slog.WarnContext(ctx, "Database not ready, retrying",
			"attempt", attempt,
			"retry_in", retryDelay,
			"error", err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		case <-time.After(retryDelay):
		}
		if retryDelay < 8*time.Second {
			retryDelay *= 2
		}
	}

	if err := RunMigrations(DialectPostgres, databaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: DialectPostgres}, nil
}

func openDB(dialect Dialect, dsn string) (*sql.DB, error) {
	switch dialect {
	case DialectSQLite:
		return sql.Open("sqlite", dsn)
	case DialectPostgres:
		cfg, err := pgx.ParseConfig(normalizePostgresURL(dsn))
		if err != nil {
			return nil, fmt.Errorf("parse database URL: %w", err)
		}
		return stdlib.OpenDB(*cfg), nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
}

// normalizePostgresURL accepts the postgresql:// scheme and disables TLS
// unless the URL says otherwise.
func normalizePostgresURL(u string) string {
	if strings.HasPrefix(u, "postgresql://") {
		u = "postgres://" + strings.TrimPrefix(u, "postgresql://")
	}
	if strings.HasPrefix(u, "postgres://") && !strings.Contains(u, "sslmode=") {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + "sslmode=disable"
	}
	return u
}

func (r *Repository) Dialect() Dialect {
	return r.dialect
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $1..$n for PostgreSQL.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// timeArg encodes a timestamp for the active dialect.
func (r *Repository) timeArg(t time.Time) any {
	if r.dialect == DialectPostgres {
		return t.UTC()
	}
	return t.UTC().Format(timestampLayout)
}

func (r *Repository) CreateSubscription(ctx context.Context, s core.Subscription) error {
	query := r.rebind(`INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.Description, s.Amount.String(), s.Currency, s.BillingCycleDays,
		s.Category, string(s.Status), s.StartDate, s.EndDate, s.NextBillingDate,
		s.Color, s.Website, s.Notes,
		r.timeArg(s.CreatedAt), r.timeArg(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	slog.InfoContext(ctx, "Subscription saved",
		"id", s.ID,
		"name", s.Name,
		"dialect", r.dialect)
	return nil
}

func (r *Repository) GetSubscription(ctx context.Context, id string) (core.Subscription, error) {
	query := r.rebind(`SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = ?`)

	s, err := scanSubscription(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subscription{}, fmt.Errorf("get subscription %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return s, nil
}

// ListSubscriptions returns every subscription, newest first.
func (r *Repository) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []core.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

func (r *Repository) UpdateSubscription(ctx context.Context, s core.Subscription) error {
	query := r.rebind(`UPDATE subscriptions SET
		name = ?, description = ?, amount = ?, currency = ?, billing_cycle_days = ?,
		category = ?, status = ?, start_date = ?, end_date = ?, next_billing_date = ?,
		color = ?, website = ?, notes = ?, updated_at = ?
		WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query,
		s.Name, s.Description, s.Amount.String(), s.Currency, s.BillingCycleDays,
		s.Category, string(s.Status), s.StartDate, s.EndDate, s.NextBillingDate,
		s.Color, s.Website, s.Notes, r.timeArg(s.UpdatedAt),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update subscription %s: %w", s.ID, err)
	}
	if err := expectOneRow(res); err != nil {
		return fmt.Errorf("update subscription %s: %w", s.ID, err)
	}
	return nil
}

func (r *Repository) DeleteSubscription(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM subscriptions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete subscription %s: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return fmt.Errorf("delete subscription %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Subscription deleted", "id", id)
	return nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (core.Subscription, error) {
	var (
		s                    core.Subscription
		status               string
		createdAt, updatedAt timestamp
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.Description, &s.Amount, &s.Currency, &s.BillingCycleDays,
		&s.Category, &status, &s.StartDate, &s.EndDate, &s.NextBillingDate,
		&s.Color, &s.Website, &s.Notes,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return core.Subscription{}, err
	}
	s.Status = core.Status(status)
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time
	return s, nil
}

// timestamp scans either a native time value or the text form written
// for SQLite.
type timestamp struct {
	time.Time
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}
