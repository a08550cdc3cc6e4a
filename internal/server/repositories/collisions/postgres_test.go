package collisions

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

func TestCreate_PopulatesIDAndTimestamp(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	occurred := time.Now()

	mock.ExpectQuery(`INSERT INTO collisions .* RETURNING id, occurred_at`).
		WithArgs("u1", "u2", "old vinyl records", models.CollisionKindSimultaneous).
		WillReturnRows(sqlmock.NewRows([]string{"id", "occurred_at"}).AddRow("c1", occurred))

	c := &models.Collision{User1ID: "u1", User2ID: "u2", Query: "old vinyl records", Kind: models.CollisionKindSimultaneous}
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != "c1" || !c.OccurredAt.Equal(occurred) {
		t.Fatalf("row values not populated: %+v", c)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExistsForPair(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	since := time.Now().Add(-time.Hour)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("u1", "u2", "old vinyl records", since).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForPair(context.Background(), "u1", "u2", "old vinyl records", since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Fatal("expected pair to exist")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExistsForPair_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).WillReturnError(errors.New("boom"))

	if _, err := repo.ExistsForPair(context.Background(), "u1", "u2", "q", time.Now()); err == nil {
		t.Fatal("expected error")
	}
}

func TestListRecent_ScansJoinedNames(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	since := time.Now().Add(-24 * time.Hour)
	occurred := time.Now()

	rows := sqlmock.NewRows([]string{"id", "user1_id", "user2_id", "query", "collision_type", "occurred_at", "u1", "u2"}).
		AddRow("c1", "u1", "u2", "old vinyl records", "simultaneous", occurred, "margot", "felix")

	mock.ExpectQuery(`SELECT c.id, c.user1_id, .* FROM collisions c`).
		WithArgs(since, 10).
		WillReturnRows(rows)

	views, err := repo.ListRecent(context.Background(), since, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	if views[0].User1Name != "margot" || views[0].User2Name != "felix" {
		t.Fatalf("joined names not scanned: %+v", views[0])
	}
}
