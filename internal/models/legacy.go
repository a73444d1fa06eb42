package models

import (
	"strconv"
	"time"
)

// LegacyVideo is the version 1 on-disk record shape.
type LegacyVideo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	PublicID   string  `json:"public_id"`
	SecureURL  string  `json:"secure_url"`
	UploadedBy string  `json:"uploadedBy"`
	CreatedAt  string  `json:"createdAt"`
	Duration   float64 `json:"duration"`
	Format     string  `json:"format"`
	Views      *int64  `json:"views"`
}

// Upgrade converts a version 1 record, defaulting views to zero when absent.
func (l LegacyVideo) Upgrade() Video {
	v := Video{
		ID:         l.ID,
		Title:      l.Title,
		LocationID: l.PublicID,
		URL:        l.SecureURL,
		Uploader:   l.UploadedBy,
		Duration:   l.Duration,
		Format:     l.Format,
	}
	if l.Views != nil {
		v.Views = *l.Views
	}
	if t, err := time.Parse(time.RFC3339Nano, l.CreatedAt); err == nil {
		v.CreatedAt = t
	} else if ms, err := strconv.ParseInt(l.ID, 10, 64); err == nil {
		// v1 ids were Date.now() strings
		v.CreatedAt = time.UnixMilli(ms).UTC()
	}
	v.Normalize()
	return v
}
