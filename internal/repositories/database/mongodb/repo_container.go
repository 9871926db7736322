package mongodb

import (
	"context"
	"time"

	portsrepo "github.com/SscSPs/auth_service/internal/core/ports/repositories"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewRepositoryProvider builds every Mongo-backed repository and makes sure
// the unique indexes they rely on exist.
func NewRepositoryProvider(ctx context.Context, db *mongo.Database, timeout time.Duration) (portsrepo.RepositoryProvider, error) {
	users := NewUserRepository(db, timeout)
	if err := users.EnsureIndexes(ctx); err != nil {
		return portsrepo.RepositoryProvider{}, err
	}
	return portsrepo.RepositoryProvider{
		UserRepo: users,
		Health:   users,
	}, nil
}
