package domain

// Scene is a half-open interval [TStart, TEnd) of the normalized video.
// Scenes for one video tile its full duration with dense, monotonic indexes.
type Scene struct {
	ID      string  `gorm:"type:text;primaryKey" json:"id"`
	VideoID string  `gorm:"column:video_id;type:text;not null;uniqueIndex:uq_scenes_video_idx" json:"video_id"`
	Idx     int     `gorm:"column:idx;not null;uniqueIndex:uq_scenes_video_idx" json:"idx"`
	TStart  float64 `gorm:"column:t_start;not null" json:"t_start"`
	TEnd    float64 `gorm:"column:t_end;not null" json:"t_end"`
}

func (Scene) TableName() string { return "scenes" }
