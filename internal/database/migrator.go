package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kdimtricp/vidportal/internal/metadata"
)

// MigrationStatus summarizes how a source collection relates to the target.
type MigrationStatus struct {
	Total   int
	Applied int
	Pending int
}

// Migrator copies records from one metadata store into another, keyed by
// locationId. Records already present in the target are skipped, so running
// it twice is safe.
type Migrator struct {
	source metadata.Store
	target metadata.Store
}

func NewMigrator(source, target metadata.Store) *Migrator {
	return &Migrator{source: source, target: target}
}

func (m *Migrator) Status(ctx context.Context) (MigrationStatus, error) {
	videos, err := m.source.List(ctx)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to list source videos: %w", err)
	}

	status := MigrationStatus{Total: len(videos)}
	for _, v := range videos {
		_, ok, err := m.target.FindByKey(ctx, v.LocationID)
		if err != nil {
			return MigrationStatus{}, fmt.Errorf("failed to check %s: %w", v.LocationID, err)
		}
		if ok {
			status.Applied++
		} else {
			status.Pending++
		}
	}
	return status, nil
}

// Run copies all pending records and returns how many were written.
func (m *Migrator) Run(ctx context.Context) (int, error) {
	videos, err := m.source.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list source videos: %w", err)
	}

	copied := 0
	for _, v := range videos {
		err := m.target.Append(ctx, v)
		if errors.Is(err, metadata.ErrDuplicate) {
			continue
		}
		if err != nil {
			return copied, fmt.Errorf("migration failed at %s: %w", v.LocationID, err)
		}
		log.Debug().Str("location_id", v.LocationID).Msg("Copied video record")
		copied++
	}

	if copied == 0 {
		log.Info().Msg("No pending records")
	} else {
		log.Info().Int("count", copied).Msg("Copied video records")
	}
	return copied, nil
}
