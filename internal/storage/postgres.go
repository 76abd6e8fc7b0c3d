// Package storage persists scraping sessions and their articles in
// PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/deusflow/aznews/internal/logger"
	"github.com/deusflow/aznews/internal/news"
	"github.com/deusflow/aznews/internal/retry"
)

// ErrSessionNotSaved wraps every SaveCompleteSession failure. Nothing from
// the failed call is left in the database.
var ErrSessionNotSaved = errors.New("session not saved")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is the PostgreSQL store.
type Store struct {
	db  *sqlx.DB
	log *slog.Logger
}

// SessionSummary is the metadata written with a session. The new article
// count is always the number of articles saved with it.
type SessionSummary struct {
	Summary         string
	ArticlesCount   int
	SourcesCount    int
	DurationSeconds float64
}

// Session is a stored scraping session.
type Session struct {
	ID               int64           `db:"id"`
	Summary          sql.NullString  `db:"summary"`
	ArticlesCount    int             `db:"articles_count"`
	SourcesCount     int             `db:"sources_count"`
	NewArticlesCount int             `db:"new_articles_count"`
	DurationSeconds  sql.NullFloat64 `db:"scraping_duration_seconds"`
	CreatedAt        time.Time       `db:"created_at"`
	LinkedArticles   int             `db:"linked_articles"`
}

type DeleteResult struct {
	SessionIDs []int64
	URLs       []string // urls of the deleted articles
	Sessions   int64
	Articles   int64
}

type Stats struct {
	Articles      int64        `db:"articles"`
	Sessions      int64        `db:"sessions"`
	LastSessionAt sql.NullTime `db:"last_session_at"`
}

// Open connects with retry and makes sure the schema exists.
func Open(ctx context.Context, connectionString string) (*Store, error) {
	var db *sqlx.DB
	err := retry.WithRetry(ctx, retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true}, func(ctx context.Context) error {
		var err error
		db, err = sqlx.ConnectContext(ctx, "postgres", connectionString)
		if err != nil {
			logger.Warn("database connection attempt failed", "error", err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s := NewWithDB(db)
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.log.Info("PostgreSQL connected")
	return s, nil
}

// NewWithDB wraps an open handle without touching the schema.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db, log: logger.Component("storage")}
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InitSchema creates the tables, indexes and updated_at triggers if they
// don't exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.log.Debug("database schema initialized")
	return nil
}

const schema = `
CREATE SCHEMA IF NOT EXISTS news;

CREATE TABLE IF NOT EXISTS news.scraping_summaries (
	id SERIAL PRIMARY KEY,
	summary TEXT,
	articles_count INTEGER NOT NULL DEFAULT 0,
	sources_count INTEGER NOT NULL DEFAULT 0,
	new_articles_count INTEGER NOT NULL DEFAULT 0,
	scraping_duration_seconds DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS news.articles (
	id SERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	source VARCHAR(100) NOT NULL,
	url TEXT NOT NULL UNIQUE,
	published_date TIMESTAMPTZ,
	language VARCHAR(10) NOT NULL DEFAULT 'az',
	scraping_session_id INTEGER REFERENCES news.scraping_summaries(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_articles_source ON news.articles(source);
CREATE INDEX IF NOT EXISTS idx_articles_session ON news.articles(scraping_session_id);
CREATE INDEX IF NOT EXISTS idx_articles_published ON news.articles(published_date);

CREATE OR REPLACE FUNCTION news.set_updated_at() RETURNS TRIGGER AS $$
BEGIN
	NEW.updated_at = NOW();
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_scraping_summaries_updated_at ON news.scraping_summaries;
CREATE TRIGGER trg_scraping_summaries_updated_at BEFORE UPDATE ON news.scraping_summaries
	FOR EACH ROW EXECUTE FUNCTION news.set_updated_at();

DROP TRIGGER IF EXISTS trg_articles_updated_at ON news.articles;
CREATE TRIGGER trg_articles_updated_at BEFORE UPDATE ON news.articles
	FOR EACH ROW EXECUTE FUNCTION news.set_updated_at();
`

// ArticleExists reports whether an article with url is stored.
func (s *Store) ArticleExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM news.articles WHERE url = $1)`, url)
	if err != nil {
		return false, fmt.Errorf("check article: %w", err)
	}
	return exists, nil
}

const insertSession = `
	INSERT INTO news.scraping_summaries
		(summary, articles_count, sources_count, new_articles_count, scraping_duration_seconds)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id`

// Upsert keyed on url: an existing row takes the new content and session.
const upsertArticle = `
	INSERT INTO news.articles (title, content, source, url, published_date, language, scraping_session_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (url) DO UPDATE
	SET title = EXCLUDED.title,
		content = EXCLUDED.content,
		published_date = EXCLUDED.published_date,
		scraping_session_id = EXCLUDED.scraping_session_id,
		updated_at = NOW()`

// SaveCompleteSession writes the session row and every article in one
// transaction and returns the session id. On any error the transaction is
// rolled back and the error wraps ErrSessionNotSaved.
func (s *Store) SaveCompleteSession(ctx context.Context, articles []news.Article, summary SessionSummary) (id int64, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", ErrSessionNotSaved, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.log.Error("rollback failed", "error", rbErr)
			}
			s.log.Warn("session rolled back", "articles", len(articles), "error", err)
		}
	}()

	err = tx.QueryRowxContext(ctx, insertSession,
		summary.Summary,
		summary.ArticlesCount,
		summary.SourcesCount,
		len(articles),
		summary.DurationSeconds,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert session: %w", ErrSessionNotSaved, err)
	}

	for i, a := range articles {
		_, err = tx.ExecContext(ctx, upsertArticle,
			a.Title, a.Content, a.Source, a.URL, a.PublishedDate, a.Lang(), id)
		if err != nil {
			return 0, fmt.Errorf("%w: insert article %d/%d (%s): %w", ErrSessionNotSaved, i+1, len(articles), a.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", ErrSessionNotSaved, err)
	}

	s.log.Info("session saved", "session_id", id, "articles", len(articles))
	return id, nil
}

// ListSessions returns the newest sessions with the number of articles
// still linked to each.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 10
	}
	query, args, err := psql.
		Select(
			"s.id", "s.summary", "s.articles_count", "s.sources_count", "s.new_articles_count",
			"s.scraping_duration_seconds", "s.created_at", "COUNT(a.id) AS linked_articles",
		).
		From("news.scraping_summaries s").
		LeftJoin("news.articles a ON a.scraping_session_id = s.id").
		GroupBy("s.id").
		OrderBy("s.id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build session query: %w", err)
	}

	var sessions []Session
	if err := s.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteLastSessions removes the newest n sessions and the articles linked
// to them in one transaction. The result carries the deleted article URLs
// so callers can evict them from the known-URL cache.
func (s *Store) DeleteLastSessions(ctx context.Context, n int) (DeleteResult, error) {
	var res DeleteResult
	if n <= 0 {
		return res, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin cleanup: %w", err)
	}
	defer tx.Rollback()

	query, args, err := psql.Select("id").
		From("news.scraping_summaries").
		OrderBy("id DESC").
		Limit(uint64(n)).
		ToSql()
	if err != nil {
		return res, fmt.Errorf("build id query: %w", err)
	}
	if err := tx.SelectContext(ctx, &res.SessionIDs, query, args...); err != nil {
		return res, fmt.Errorf("select sessions: %w", err)
	}
	if len(res.SessionIDs) == 0 {
		return res, nil
	}

	ids := pq.Array(res.SessionIDs)
	query, args, err = psql.Select("url").
		From("news.articles").
		Where("scraping_session_id = ANY(?)", ids).
		ToSql()
	if err != nil {
		return res, fmt.Errorf("build url query: %w", err)
	}
	if err := tx.SelectContext(ctx, &res.URLs, query, args...); err != nil {
		return res, fmt.Errorf("select article urls: %w", err)
	}
	if res.Articles, err = execDelete(ctx, tx, psql.Delete("news.articles").Where("scraping_session_id = ANY(?)", ids)); err != nil {
		return res, fmt.Errorf("delete articles: %w", err)
	}
	if res.Sessions, err = execDelete(ctx, tx, psql.Delete("news.scraping_summaries").Where("id = ANY(?)", ids)); err != nil {
		return res, fmt.Errorf("delete sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit cleanup: %w", err)
	}
	s.log.Info("sessions deleted", "sessions", res.Sessions, "articles", res.Articles)
	return res, nil
}

func execDelete(ctx context.Context, tx *sqlx.Tx, b sq.DeleteBuilder) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	r, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return r.RowsAffected()
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			(SELECT COUNT(*) FROM news.articles) AS articles,
			(SELECT COUNT(*) FROM news.scraping_summaries) AS sessions,
			(SELECT MAX(created_at) FROM news.scraping_summaries) AS last_session_at`)
	if err != nil {
		return st, fmt.Errorf("store stats: %w", err)
	}
	return st, nil
}
