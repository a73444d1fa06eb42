package metadata

import (
	"context"
	"errors"

	"github.com/kdimtricp/vidportal/internal/models"
)

var (
	ErrNotFound  = errors.New("video not found")
	ErrDuplicate = errors.New("video already exists")
)

// Store owns the authoritative video collection. Implementations serialize
// every operation so concurrent read-modify-write cycles cannot lose updates.
type Store interface {
	List(ctx context.Context) ([]models.Video, error)
	Append(ctx context.Context, video models.Video) error
	// RemoveByKey deletes every record with the given locationId and reports
	// whether any matched.
	RemoveByKey(ctx context.Context, locationID string) (bool, error)
	FindByKey(ctx context.Context, locationID string) (models.Video, bool, error)
	// Update applies fn to the record with the given locationId and persists
	// the result. It returns ErrNotFound when no record matches.
	Update(ctx context.Context, locationID string, fn func(*models.Video) error) (models.Video, error)
	Close() error
}
