package models

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the version written into the metadata envelope.
// Version 1 is the legacy bare array keyed by public_id/secure_url/uploadedBy.
const SchemaVersion = 2

type Video struct {
	ID         string    `json:"id" gorm:"primaryKey;size:64"`
	Title      string    `json:"title" gorm:"not null"`
	LocationID string    `json:"locationId" gorm:"uniqueIndex;size:255;not null"`
	URL        string    `json:"url"`
	Uploader   string    `json:"uploader"`
	CreatedAt  time.Time `json:"createdAt"`
	Duration   float64   `json:"duration"`
	Format     string    `json:"format"`
	Views      int64     `json:"views" gorm:"not null;default:0"`
}

func (Video) TableName() string {
	return "videos"
}

func NewVideo(title, locationID, url, uploader, format string, duration float64) *Video {
	return &Video{
		ID:         uuid.New().String(),
		Title:      title,
		LocationID: locationID,
		URL:        url,
		Uploader:   uploader,
		CreatedAt:  time.Now().UTC(),
		Duration:   duration,
		Format:     format,
	}
}

// Normalize fills defaults for fields that older records may lack.
func (v *Video) Normalize() {
	if v.Views < 0 {
		v.Views = 0
	}
	if v.Format == "" {
		v.Format = "mp4"
	}
	if v.ID == "" {
		v.ID = v.LocationID
	}
}
