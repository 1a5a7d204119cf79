package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/data/repos/testutil"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/faults"
)

func TestClaimNextFIFO(t *testing.T) {
	db := testutil.DB(t)
	repo := NewJobRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	tx := db.Begin()
	video := testutil.SeedVideo(t, tx)
	older := testutil.SeedJob(t, tx, video.ID, -2*time.Minute)
	newer := testutil.SeedJob(t, tx, video.ID, -1*time.Minute)
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit seed: %v", err)
	}
	t.Cleanup(func() {
		db.Where("video_id = ?", video.ID).Delete(&types.Job{})
		db.Where("id = ?", video.ID).Delete(&types.Video{})
	})

	first, err := repo.ClaimNext(dbc)
	if err != nil {
		t.Fatalf("claim first: %v", err)
	}
	if first.ID != older.ID {
		t.Fatalf("claimed %s, want oldest %s", first.ID, older.ID)
	}
	if first.Status != types.JobProcessing {
		t.Fatalf("claimed status = %s, want processing", first.Status)
	}
	if first.Attempts != 1 {
		t.Fatalf("claimed attempts = %d, want 1", first.Attempts)
	}

	var v types.Video
	if err := db.Where("id = ?", video.ID).First(&v).Error; err != nil {
		t.Fatalf("reload video: %v", err)
	}
	if v.Status != types.VideoProcessing {
		t.Fatalf("video status = %s, want processing", v.Status)
	}

	second, err := repo.ClaimNext(dbc)
	if err != nil {
		t.Fatalf("claim second: %v", err)
	}
	if second.ID != newer.ID {
		t.Fatalf("claimed %s, want %s", second.ID, newer.ID)
	}

	if _, err := repo.ClaimNext(dbc); !errors.Is(err, faults.ErrQueueEmpty) {
		t.Fatalf("claim on empty queue: got %v, want ErrQueueEmpty", err)
	}
}

func TestClaimNextConcurrentExclusive(t *testing.T) {
	db := testutil.DB(t)
	repo := NewJobRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	tx := db.Begin()
	video := testutil.SeedVideo(t, tx)
	testutil.SeedJob(t, tx, video.ID, -time.Minute)
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit seed: %v", err)
	}
	t.Cleanup(func() {
		db.Where("video_id = ?", video.ID).Delete(&types.Job{})
		db.Where("id = ?", video.ID).Delete(&types.Video{})
	})

	const claimers = 8
	var wg sync.WaitGroup
	results := make(chan *types.Job, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := repo.ClaimNext(dbc)
			if err != nil {
				return
			}
			results <- job
		}()
	}
	wg.Wait()
	close(results)

	var won int
	for range results {
		won++
	}
	if won != 1 {
		t.Fatalf("%d claimers won a single job, want exactly 1", won)
	}
}

func TestCompleteMarksJobAndVideo(t *testing.T) {
	db := testutil.DB(t)
	repo := NewJobRepo(db, testutil.Logger(t))
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	video := testutil.SeedVideo(t, tx)
	job := testutil.SeedJob(t, tx, video.ID, 0)

	if err := repo.Complete(dbc, job.ID, video.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	var j types.Job
	if err := tx.Where("id = ?", job.ID).First(&j).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if j.Status != types.JobDone {
		t.Fatalf("job status = %s, want done", j.Status)
	}
	var v types.Video
	if err := tx.Where("id = ?", video.ID).First(&v).Error; err != nil {
		t.Fatalf("reload video: %v", err)
	}
	if v.Status != types.VideoReady {
		t.Fatalf("video status = %s, want ready", v.Status)
	}
}

func TestFailTruncatesError(t *testing.T) {
	db := testutil.DB(t)
	repo := NewJobRepo(db, testutil.Logger(t))
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	video := testutil.SeedVideo(t, tx)
	job := testutil.SeedJob(t, tx, video.ID, 0)
	if err := tx.Model(&types.Video{}).Where("id = ?", video.ID).
		Update("status", types.VideoProcessing).Error; err != nil {
		t.Fatalf("prime video: %v", err)
	}

	long := strings.Repeat("x", 2000)
	if err := repo.Fail(dbc, job.ID, long); err != nil {
		t.Fatalf("fail: %v", err)
	}

	var j types.Job
	if err := tx.Where("id = ?", job.ID).First(&j).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if j.Status != types.JobFailed {
		t.Fatalf("job status = %s, want failed", j.Status)
	}
	if j.Error == nil || len(*j.Error) != maxErrorLen {
		t.Fatalf("stored error length = %v, want %d", j.Error, maxErrorLen)
	}
	// The video stays processing so an operator can retry manually.
	var v types.Video
	if err := tx.Where("id = ?", video.ID).First(&v).Error; err != nil {
		t.Fatalf("reload video: %v", err)
	}
	if v.Status != types.VideoProcessing {
		t.Fatalf("video status = %s, want processing", v.Status)
	}
}

func TestResetPreservesAttempts(t *testing.T) {
	db := testutil.DB(t)
	repo := NewJobRepo(db, testutil.Logger(t))
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	video := testutil.SeedVideo(t, tx)
	job := testutil.SeedJob(t, tx, video.ID, 0)
	if err := tx.Model(&types.Job{}).Where("id = ?", job.ID).
		Updates(map[string]interface{}{"status": types.JobProcessing, "attempts": 2}).Error; err != nil {
		t.Fatalf("prime job: %v", err)
	}

	if err := repo.Reset(dbc, job.ID, "transient: connection reset"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	var j types.Job
	if err := tx.Where("id = ?", job.ID).First(&j).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if j.Status != types.JobPending {
		t.Fatalf("job status = %s, want pending", j.Status)
	}
	if j.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2 (preserved)", j.Attempts)
	}
	if j.Error == nil || *j.Error == "" {
		t.Fatal("reset should record the triggering error")
	}
}

func TestPeekListsPendingFIFO(t *testing.T) {
	db := testutil.DB(t)
	repo := NewJobRepo(db, testutil.Logger(t))
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	video := testutil.SeedVideo(t, tx)
	a := testutil.SeedJob(t, tx, video.ID, -4*time.Minute)
	b := testutil.SeedJob(t, tx, video.ID, -3*time.Minute)
	claimed := testutil.SeedJob(t, tx, video.ID, -2*time.Minute)
	done := testutil.SeedJob(t, tx, video.ID, -1*time.Minute)
	if err := tx.Model(&types.Job{}).Where("id = ?", claimed.ID).
		Update("status", types.JobProcessing).Error; err != nil {
		t.Fatalf("prime processing job: %v", err)
	}
	if err := tx.Model(&types.Job{}).Where("id = ?", done.ID).
		Update("status", types.JobDone).Error; err != nil {
		t.Fatalf("prime done job: %v", err)
	}

	peeked, err := repo.Peek(dbc, 10)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	var mine []PeekedJob
	for _, p := range peeked {
		if p.VideoID == video.ID {
			mine = append(mine, p)
		}
	}
	if len(mine) != 2 {
		t.Fatalf("peeked %d pending jobs, want 2 (processing and done excluded)", len(mine))
	}
	if mine[0].ID != a.ID || mine[1].ID != b.ID {
		t.Fatalf("peek order = %s, %s; want %s, %s", mine[0].ID, mine[1].ID, a.ID, b.ID)
	}
	if mine[0].VideoName != "clip.mp4" {
		t.Fatalf("peek video_name = %q, want clip.mp4", mine[0].VideoName)
	}

	n, err := repo.PendingCount(dbc)
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if n < 2 {
		t.Fatalf("pending count = %d, want at least the 2 seeded", n)
	}
}
