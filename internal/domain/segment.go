package domain

import "github.com/pgvector/pgvector-go"

// TranscriptSegment is one speech span from transcription. Embedding is
// filled in by the embedding stage after insertion, so it stays nullable.
// The (video_id, t_start, t_end) key dedups re-inserted segments across
// retries even when the provider shifts segment indexes.
type TranscriptSegment struct {
	ID        string           `gorm:"type:text;primaryKey" json:"id"`
	VideoID   string           `gorm:"column:video_id;type:text;not null;uniqueIndex:uq_segments_video_span" json:"video_id"`
	TStart    float64          `gorm:"column:t_start;not null;uniqueIndex:uq_segments_video_span" json:"t_start"`
	TEnd      float64          `gorm:"column:t_end;not null;uniqueIndex:uq_segments_video_span" json:"t_end"`
	Text      string           `gorm:"column:text;not null" json:"text"`
	Embedding *pgvector.Vector `gorm:"column:embedding;type:vector(1536)" json:"-"`
}

func (TranscriptSegment) TableName() string { return "transcript_segments" }
