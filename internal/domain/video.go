package domain

import "time"

// Video is the root entity. OriginalPath points at the uploaded source
// file, relative to the data root unless absolute; NormalizedPath is set
// once transcoding succeeds.
type Video struct {
	ID             string      `gorm:"type:text;primaryKey" json:"id"`
	OriginalName   string      `gorm:"column:original_name" json:"original_name,omitempty"`
	OriginalPath   string      `gorm:"column:original_path;not null" json:"original_path"`
	NormalizedPath *string     `gorm:"column:normalized_path" json:"normalized_path,omitempty"`
	Status         VideoStatus `gorm:"column:status;type:text;not null;default:'uploaded';index" json:"status"`
	DurationSec    *float64    `gorm:"column:duration_sec" json:"duration_sec,omitempty"`
	SizeBytes      *int64      `gorm:"column:size_bytes" json:"size_bytes,omitempty"`
	CreatedAt      time.Time   `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"not null;default:now()" json:"updated_at"`
}

func (Video) TableName() string { return "videos" }
