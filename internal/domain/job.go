package domain

import "time"

// Job is a queue entry for one pipeline run over a video. Claiming is FIFO by
// CreatedAt under FOR UPDATE SKIP LOCKED.
type Job struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	VideoID   string    `gorm:"column:video_id;type:text;not null;index" json:"video_id"`
	Status    JobStatus `gorm:"column:status;type:text;not null;default:'pending';index" json:"status"`
	Attempts  int       `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error     *string   `gorm:"column:error" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }
