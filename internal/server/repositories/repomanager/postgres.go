package repomanager

import (
	"context"
	"database/sql"

	"github.com/convivial/salon/internal/dbx"
	"github.com/convivial/salon/internal/server/migrations"
	"github.com/convivial/salon/internal/server/repositories/collections"
	"github.com/convivial/salon/internal/server/repositories/collisions"
	"github.com/convivial/salon/internal/server/repositories/digests"
	"github.com/convivial/salon/internal/server/repositories/discoveries"
	"github.com/convivial/salon/internal/server/repositories/giftcapsules"
	"github.com/convivial/salon/internal/server/repositories/searches"
	"github.com/convivial/salon/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Searches(db dbx.DBTX) searches.Repository {
	return searches.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Collisions(db dbx.DBTX) collisions.Repository {
	return collisions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Discoveries(db dbx.DBTX) discoveries.Repository {
	return discoveries.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) GiftCapsules(db dbx.DBTX) giftcapsules.Repository {
	return giftcapsules.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Collections(db dbx.DBTX) collections.Repository {
	return collections.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Digests(db dbx.DBTX) digests.Repository {
	return digests.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
