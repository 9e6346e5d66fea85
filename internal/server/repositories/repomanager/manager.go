// Package repomanager hands out repositories bound to a database handle or
// an open transaction.
package repomanager

import (
	"context"
	"database/sql"

	"opsboard/internal/dbx"
	"opsboard/internal/server/repositories/sessions"
	"opsboard/internal/server/repositories/tasks"
	"opsboard/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Tasks(db dbx.DBTX) tasks.Repository
}
