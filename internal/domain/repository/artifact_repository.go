package repository

import (
	"context"
)

// ArtifactRepository stores exported files and run snapshots
type ArtifactRepository interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}
