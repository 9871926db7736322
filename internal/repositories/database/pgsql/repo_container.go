package pgsql

import (
	"database/sql"
	"time"

	portsrepo "github.com/SscSPs/auth_service/internal/core/ports/repositories"
)

// NewRepositoryProvider builds every Postgres-backed repository. The schema is
// owned by the migrations in pkg/database.
func NewRepositoryProvider(db *sql.DB, timeout time.Duration) portsrepo.RepositoryProvider {
	users := NewUserRepository(db, timeout)
	return portsrepo.RepositoryProvider{
		UserRepo: users,
		Health:   users,
	}
}
