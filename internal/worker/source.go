package worker

import (
	"context"

	"github.com/yungbote/video-worker/internal/data/repos/jobs"
	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
)

// Source hands out claimed jobs. Claim returns faults.ErrQueueEmpty when
// nothing is runnable.
type Source interface {
	Claim(ctx context.Context) (*types.Job, error)
}

// PostgresSource claims straight from the jobs table.
type PostgresSource struct {
	Jobs jobs.JobRepo
}

func (s PostgresSource) Claim(ctx context.Context) (*types.Job, error) {
	return s.Jobs.ClaimNext(dbctx.Context{Ctx: ctx})
}
