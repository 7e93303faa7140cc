package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/Jenny-Gump/content-generator/internal/domain"
	"github.com/Jenny-Gump/content-generator/internal/ports"
)

// PostgresRepository persists completed runs into Postgres.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RunRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation. A nil db yields a
// repository that reports nothing as processed and drops saves.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// AlreadyProcessed reports whether a run for this topic was already saved.
func (r *PostgresRepository) AlreadyProcessed(ctx context.Context, topic string) (bool, error) {
	if r.db == nil {
		return false, nil
	}

	query, args, err := r.builder.
		Select("1").
		From("generation_runs").
		Where(sq.Eq{"topic": topic}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("query run: %w", err)
	}
	return true, nil
}

// SaveRun inserts the run snapshot; re-running a topic updates the row.
func (r *PostgresRepository) SaveRun(ctx context.Context, rec domain.RunRecord) error {
	if r.db == nil {
		return nil
	}

	query, args, err := r.builder.
		Insert("generation_runs").
		Columns("id", "topic", "article_title", "post_id", "source_urls", "total_tokens", "created_at").
		Values(rec.ID, rec.Topic, rec.ArticleTitle, rec.PostID, pq.StringArray(rec.SourceURLs), rec.TotalTokens, rec.CreatedAt).
		Suffix(`ON CONFLICT (topic) DO UPDATE
                SET article_title = EXCLUDED.article_title,
                    post_id = EXCLUDED.post_id,
                    source_urls = EXCLUDED.source_urls,
                    total_tokens = EXCLUDED.total_tokens,
                    created_at = EXCLUDED.created_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}
