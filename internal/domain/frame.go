package domain

// Frame is a keyframe sampled at a scene midpoint that survived perceptual
// dedup. SceneIdx is denormalized from the owning scene so frame queries do
// not need a join.
type Frame struct {
	ID       string  `gorm:"type:text;primaryKey" json:"id"`
	VideoID  string  `gorm:"column:video_id;type:text;not null;index" json:"video_id"`
	SceneID  string  `gorm:"column:scene_id;type:text;not null;index" json:"scene_id"`
	SceneIdx int     `gorm:"column:scene_idx;not null" json:"scene_idx"`
	TFrame   float64 `gorm:"column:t_frame;not null" json:"t_frame"`
	Path     string  `gorm:"column:path;not null" json:"path"`
	Phash    string  `gorm:"column:phash;type:text;not null" json:"phash"`
}

func (Frame) TableName() string { return "frames" }
