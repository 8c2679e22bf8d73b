package repository

import (
	"context"
)

// ReleaseFunc gives back a lock obtained from RunLockRepository
type ReleaseFunc func(ctx context.Context) error

// RunLockRepository guards aggregation runs across replicas.
// Acquire returns entity.ErrRunInProgress when another holder owns the lock.
type RunLockRepository interface {
	Acquire(ctx context.Context) (ReleaseFunc, error)
}
