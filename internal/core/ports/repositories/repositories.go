package repositories

import "context"

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	UserRepo UserRepositoryFacade
	// Health is optional; the health endpoint reports ok without it.
	Health StoreHealthChecker
}

// StoreHealthChecker is implemented by credential store backends that can report liveness.
type StoreHealthChecker interface {
	Ping(ctx context.Context) error
}
