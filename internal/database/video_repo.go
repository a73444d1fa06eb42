package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/kdimtricp/vidportal/internal/metadata"
	"github.com/kdimtricp/vidportal/internal/models"
)

// VideoRepository is the SQLite-backed metadata.Store.
type VideoRepository struct {
	db *DB
	mu sync.Mutex
}

var _ metadata.Store = (*VideoRepository)(nil)

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) List(ctx context.Context) ([]models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	videos := []models.Video{}
	result := r.db.GORM().WithContext(ctx).Order("rowid ASC").Find(&videos)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list videos: %w", result.Error)
	}
	for i := range videos {
		videos[i].Normalize()
	}
	return videos, nil
}

func (r *VideoRepository) Append(ctx context.Context, video models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	result := r.db.GORM().WithContext(ctx).Model(&models.Video{}).
		Where("id = ? OR location_id = ?", video.ID, video.LocationID).
		Count(&count)
	if result.Error != nil {
		return fmt.Errorf("failed to check video existence: %w", result.Error)
	}
	if count > 0 {
		return fmt.Errorf("append %s: %w", video.LocationID, metadata.ErrDuplicate)
	}

	if err := r.db.GORM().WithContext(ctx).Create(&video).Error; err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (r *VideoRepository) RemoveByKey(ctx context.Context, locationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := r.db.GORM().WithContext(ctx).
		Where("location_id = ?", locationID).
		Delete(&models.Video{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete video: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *VideoRepository) FindByKey(ctx context.Context, locationID string) (models.Video, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var video models.Video
	result := r.db.GORM().WithContext(ctx).First(&video, "location_id = ?", locationID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return models.Video{}, false, nil
		}
		return models.Video{}, false, fmt.Errorf("failed to get video: %w", result.Error)
	}
	video.Normalize()
	return video, true, nil
}

func (r *VideoRepository) Update(ctx context.Context, locationID string, fn func(*models.Video) error) (models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated models.Video
	err := r.db.GORM().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, "location_id = ?", locationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("update %s: %w", locationID, metadata.ErrNotFound)
			}
			return fmt.Errorf("failed to get video: %w", err)
		}
		updated.Normalize()
		if err := fn(&updated); err != nil {
			return err
		}
		if err := tx.Save(&updated).Error; err != nil {
			return fmt.Errorf("failed to save video: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Video{}, err
	}
	return updated, nil
}

// Close is a no-op; the DB handle is owned by the caller.
func (r *VideoRepository) Close() error {
	return nil
}
