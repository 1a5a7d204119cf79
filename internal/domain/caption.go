package domain

import (
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// FrameCaption holds the vision model's structured read of a single frame.
// Entities carries the raw structured payload (UI controls, on-screen text)
// as jsonb; Caption is the one-sentence description that also gets embedded.
type FrameCaption struct {
	ID        string           `gorm:"type:text;primaryKey" json:"id"`
	FrameID   string           `gorm:"column:frame_id;type:text;not null;uniqueIndex" json:"frame_id"`
	VideoID   string           `gorm:"column:video_id;type:text;not null;index" json:"video_id"`
	Caption   string           `gorm:"column:caption;not null" json:"caption"`
	Entities  datatypes.JSON   `gorm:"column:entities;type:jsonb" json:"entities,omitempty"`
	Embedding *pgvector.Vector `gorm:"column:embedding;type:vector(1536)" json:"-"`
}

func (FrameCaption) TableName() string { return "frame_captions" }

// FrameAnalysis is the schema the vision model must return for each frame.
// It round-trips into FrameCaption.Entities.
type FrameAnalysis struct {
	Caption      string         `json:"caption" validate:"required"`
	Controls     []UIControl    `json:"controls" validate:"dive"`
	TextOnScreen []TextOnScreen `json:"text_on_screen" validate:"dive"`
}

// UIControl is an interactive element the model located in the frame.
type UIControl struct {
	Type     string `json:"type" validate:"required"`
	Label    string `json:"label"`
	Position string `json:"position" validate:"required"`
}

// TextOnScreen is a piece of visible text and its rough position.
type TextOnScreen struct {
	Text     string `json:"text" validate:"required"`
	Position string `json:"position" validate:"required"`
}
