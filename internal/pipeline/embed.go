package pipeline

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/faults"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

const (
	embedBatchSize = 100
	embedDims      = 1536
)

// embed fills in the missing embedding vectors for transcript segments
// and frame captions. Rows that already carry a vector are untouched, so
// a resumed job only pays for what is left.
func (p *Pipeline) embed(ctx context.Context, dbc dbctx.Context, log *logger.Logger, video *types.Video) error {
	if !p.deps.Config.EnableEmbeddings {
		log.Info("EMBEDDINGS", "skipped", "disabled")
		return nil
	}

	segments, err := p.deps.Segments.ListMissingEmbedding(dbc, video.ID)
	if err != nil {
		return err
	}
	segTexts := make([]string, len(segments))
	for i, s := range segments {
		segTexts[i] = s.Text
	}
	segVecs, err := p.embedBatched(ctx, segTexts)
	if err != nil {
		return err
	}
	for i, s := range segments {
		if err := p.deps.Segments.SetEmbedding(dbc, s.ID, pgvector.NewVector(segVecs[i])); err != nil {
			return err
		}
	}

	captions, err := p.deps.Captions.ListMissingEmbedding(dbc, video.ID)
	if err != nil {
		return err
	}
	capTexts := make([]string, len(captions))
	for i, c := range captions {
		capTexts[i] = c.Caption
	}
	capVecs, err := p.embedBatched(ctx, capTexts)
	if err != nil {
		return err
	}
	for i, c := range captions {
		if err := p.deps.Captions.SetEmbedding(dbc, c.ID, pgvector.NewVector(capVecs[i])); err != nil {
			return err
		}
	}

	log.Info("EMBEDDINGS", "segments", len(segments), "captions", len(captions))
	return nil
}

// embedBatched splits inputs into provider-sized batches and reassembles
// the vectors in input order.
func (p *Pipeline) embedBatched(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		vecs, err := p.deps.Embedder.Embed(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, faults.Transient(fmt.Errorf("embedder returned %d vectors for %d inputs", len(vecs), end-start))
		}
		for _, v := range vecs {
			if len(v) != embedDims {
				return nil, faults.Fatal(fmt.Errorf("embedding has %d dims, want %d", len(v), embedDims))
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}
