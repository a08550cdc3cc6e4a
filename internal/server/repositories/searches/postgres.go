package searches

import (
	"context"
	"fmt"
	"time"

	"github.com/convivial/salon/internal/dbx"
	"github.com/convivial/salon/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.SearchSession) error {

	query :=
		`INSERT INTO search_sessions (user_id, query, mood, session_start)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		s.UserID, s.Query, s.Mood, s.SessionStart).Scan(&s.ID)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// FindMatches does exact, case-sensitive equality on the raw query text.
// Rows older than the window are excluded here, whether or not they are ever
// physically deleted.
func (r *PostgresRepository) FindMatches(ctx context.Context, userID, query string, since time.Time) ([]models.User, error) {

	q :=
		`SELECT DISTINCT u.id, u.username, u.display_name
		 FROM search_sessions ss
		 JOIN users u ON u.id = ss.user_id
		 WHERE ss.user_id != $1
		 AND ss.query = $2
		 AND ss.session_start > $3
		 `

	rows, err := r.db.QueryContext(ctx, q, userID, query, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var matches []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		matches = append(matches, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return matches, nil
}

func (r *PostgresRepository) PopularQueries(ctx context.Context, since time.Time, limit int) ([]QueryCount, error) {

	q :=
		`SELECT query, COUNT(*) as count
		 FROM search_sessions
		 WHERE session_start > $1
		 GROUP BY query
		 ORDER BY count DESC
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, q, since, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var counts []QueryCount
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		counts = append(counts, qc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return counts, nil
}
