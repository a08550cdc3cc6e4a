// Package repomanager vends repository implementations bound to a database
// handle, so services can run several repositories inside one transaction by
// passing the same DBTX to each.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/convivial/salon/internal/dbx"
	"github.com/convivial/salon/internal/server/repositories/collections"
	"github.com/convivial/salon/internal/server/repositories/collisions"
	"github.com/convivial/salon/internal/server/repositories/digests"
	"github.com/convivial/salon/internal/server/repositories/discoveries"
	"github.com/convivial/salon/internal/server/repositories/giftcapsules"
	"github.com/convivial/salon/internal/server/repositories/searches"
	"github.com/convivial/salon/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Searches(db dbx.DBTX) searches.Repository
	Collisions(db dbx.DBTX) collisions.Repository
	Discoveries(db dbx.DBTX) discoveries.Repository
	GiftCapsules(db dbx.DBTX) giftcapsules.Repository
	Collections(db dbx.DBTX) collections.Repository
	Digests(db dbx.DBTX) digests.Repository
}
