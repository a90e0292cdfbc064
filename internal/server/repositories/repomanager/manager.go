package repomanager

import (
	"context"
	"database/sql"

	"github.com/obralink/obralink/internal/dbx"
	"github.com/obralink/obralink/internal/server/repositories/entities"
	"github.com/obralink/obralink/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Entities(db dbx.DBTX) entities.Repository
}
