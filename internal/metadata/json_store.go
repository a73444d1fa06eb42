package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kdimtricp/vidportal/internal/models"
)

type document struct {
	Version int            `json:"version"`
	Videos  []models.Video `json:"videos"`
}

// JSONStore keeps the collection in a single JSON file. Each operation reads
// the whole file, applies its change in memory and writes the whole file back.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*JSONStore)(nil)

func NewJSONStore(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}
	return &JSONStore{path: path}, nil
}

func (s *JSONStore) Path() string {
	return s.path
}

func (s *JSONStore) List(ctx context.Context) ([]models.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(), nil
}

func (s *JSONStore) Append(ctx context.Context, video models.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	videos := s.load()
	for _, v := range videos {
		if v.ID == video.ID || v.LocationID == video.LocationID {
			return fmt.Errorf("append %s: %w", video.LocationID, ErrDuplicate)
		}
	}
	videos = append(videos, video)
	return s.save(videos)
}

func (s *JSONStore) RemoveByKey(ctx context.Context, locationID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	videos := s.load()
	kept := videos[:0]
	for _, v := range videos {
		if v.LocationID != locationID {
			kept = append(kept, v)
		}
	}
	if len(kept) == len(videos) {
		return false, nil
	}
	return true, s.save(kept)
}

func (s *JSONStore) FindByKey(ctx context.Context, locationID string) (models.Video, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Video{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.load() {
		if v.LocationID == locationID {
			return v, true, nil
		}
	}
	return models.Video{}, false, nil
}

func (s *JSONStore) Update(ctx context.Context, locationID string, fn func(*models.Video) error) (models.Video, error) {
	if err := ctx.Err(); err != nil {
		return models.Video{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	videos := s.load()
	for i := range videos {
		if videos[i].LocationID != locationID {
			continue
		}
		updated := videos[i]
		if err := fn(&updated); err != nil {
			return models.Video{}, err
		}
		videos[i] = updated
		if err := s.save(videos); err != nil {
			return models.Video{}, err
		}
		return updated, nil
	}
	return models.Video{}, fmt.Errorf("update %s: %w", locationID, ErrNotFound)
}

func (s *JSONStore) Close() error {
	return nil
}

// load never fails: a missing or unreadable file is an empty collection.
func (s *JSONStore) load() []models.Video {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("Metadata file unreadable, treating as empty")
		}
		return []models.Video{}
	}

	videos, err := decode(data)
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Metadata file corrupt, treating as empty")
		return []models.Video{}
	}
	return videos
}

func (s *JSONStore) save(videos []models.Video) error {
	data, err := json.MarshalIndent(document{Version: models.SchemaVersion, Videos: videos}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".videos-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close metadata file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}
	return nil
}

func decode(data []byte) ([]models.Video, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []models.Video{}, nil
	}

	if trimmed[0] == '[' {
		var legacy []models.LegacyVideo
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, fmt.Errorf("failed to decode legacy metadata: %w", err)
		}
		videos := make([]models.Video, 0, len(legacy))
		for _, l := range legacy {
			videos = append(videos, l.Upgrade())
		}
		return videos, nil
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if doc.Version > models.SchemaVersion {
		log.Warn().Int("version", doc.Version).Msg("Metadata written by a newer schema version")
	}
	if doc.Videos == nil {
		doc.Videos = []models.Video{}
	}
	for i := range doc.Videos {
		doc.Videos[i].Normalize()
	}
	return doc.Videos, nil
}
