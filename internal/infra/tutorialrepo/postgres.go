package tutorialrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
	"github.com/yanqian/tutorials-api/pkg/util"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tutorials (
	id          UUID PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	published   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const tutorialColumns = `id::text, title, description, published, created_at, updated_at`

// PostgresRepository implements tutorial.Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool, now: util.NowUTC}
}

// EnsureSchema creates the tutorials table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure tutorials schema: %w", err)
	}
	return nil
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, t tutorial.Tutorial) (tutorial.Tutorial, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tutorials (id, title, description, published, created_at, updated_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)
		RETURNING `+tutorialColumns,
		uuid.NewString(), t.Title, t.Description, t.Published, t.CreatedAt, t.UpdatedAt)
	return scanTutorial(row)
}

// List returns matching rows, oldest first.
func (r *PostgresRepository) List(ctx context.Context, filter tutorial.Filter) ([]tutorial.Tutorial, error) {
	where, args := postgresListFilter(filter)
	rows, err := r.pool.Query(ctx, `SELECT `+tutorialColumns+` FROM tutorials`+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []tutorial.Tutorial
	for rows.Next() {
		t, err := scanTutorial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get fetches by primary key. Non-UUID ids are reported as missing.
func (r *PostgresRepository) Get(ctx context.Context, id string) (tutorial.Tutorial, bool, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return tutorial.Tutorial{}, false, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+tutorialColumns+` FROM tutorials WHERE id = $1::uuid LIMIT 1`, parsed.String())
	if err != nil {
		return tutorial.Tutorial{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return tutorial.Tutorial{}, false, rows.Err()
	}
	t, err := scanTutorial(rows)
	if err != nil {
		return tutorial.Tutorial{}, false, err
	}
	return t, true, rows.Err()
}

// Update sets the provided columns; nil fields keep their value.
func (r *PostgresRepository) Update(ctx context.Context, id string, input tutorial.UpdateInput) (tutorial.Tutorial, bool, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return tutorial.Tutorial{}, false, nil
	}
	rows, err := r.pool.Query(ctx, `
		UPDATE tutorials
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			published = COALESCE($4, published),
			updated_at = $5
		WHERE id = $1::uuid
		RETURNING `+tutorialColumns,
		parsed.String(), input.Title, input.Description, input.Published, r.now())
	if err != nil {
		return tutorial.Tutorial{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return tutorial.Tutorial{}, false, rows.Err()
	}
	t, err := scanTutorial(rows)
	if err != nil {
		return tutorial.Tutorial{}, false, err
	}
	return t, true, rows.Err()
}

// Delete removes one row.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM tutorials WHERE id = $1::uuid`, parsed.String())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAll truncates the table contents.
func (r *PostgresRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tutorials`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTutorial(row rowScanner) (tutorial.Tutorial, error) {
	var t tutorial.Tutorial
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Published, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return tutorial.Tutorial{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func postgresListFilter(filter tutorial.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.Title != "" {
		args = append(args, "%"+escapeLike(filter.Title)+"%")
		clauses = append(clauses, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if filter.Published != nil {
		args = append(args, *filter.Published)
		clauses = append(clauses, fmt.Sprintf("published = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var _ tutorial.Repository = (*PostgresRepository)(nil)
