package searches

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/convivial/salon/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	start := time.Now()

	mock.ExpectQuery(`INSERT INTO search_sessions .* RETURNING id`).
		WithArgs("u1", "old vinyl records", "nostalgic", start).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1"))

	s := &models.SearchSession{UserID: "u1", Query: "old vinyl records", Mood: "nostalgic", SessionStart: start}
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID != "s1" {
		t.Fatalf("expected id to be populated, got %q", s.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindMatches_ExcludesSelf(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	since := time.Now().Add(-time.Hour)

	mock.ExpectQuery(`SELECT DISTINCT u\.id, u\.username, u\.display_name FROM search_sessions ss JOIN users u .* WHERE ss\.user_id != \$1 AND ss\.query = \$2 AND ss\.session_start > \$3`).
		WithArgs("u1", "tardigrades", since).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "display_name"}).
			AddRow("u2", "margot", "Margot").
			AddRow("u3", "felix", "Félix"))

	matches, err := repo.FindMatches(context.Background(), "u1", "tardigrades", since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Username != "margot" || matches[1].Username != "felix" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindMatches_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT DISTINCT u\.id`).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.FindMatches(context.Background(), "u1", "q", time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestPopularQueries(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	since := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery(`SELECT query, COUNT\(\*\) as count FROM search_sessions`).
		WithArgs(since, 5).
		WillReturnRows(sqlmock.NewRows([]string{"query", "count"}).
			AddRow("tardigrades", 3).
			AddRow("old vinyl records", 2))

	counts, err := repo.PopularQueries(context.Background(), since, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counts) != 2 || counts[0].Count != 3 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
