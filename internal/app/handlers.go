package app

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/video-worker/internal/platform/dbctx"
)

func (a *App) handleHealthz(c *gin.Context) {
	sqlDB, err := a.pg.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "status": "degraded", "db": err.Error()})
		return
	}
	if _, err := os.Stat(a.layout.Root); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "status": "degraded", "data_dir": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "healthy"})
}

func (a *App) handleJobsPeek(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	pending, err := a.jobs.PendingCount(dbc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	peeked, err := a.jobs.Peek(dbc, 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending_jobs": pending, "jobs": peeked})
}

func (a *App) handleStats(c *gin.Context) {
	snapshot, err := a.stats.Snapshot(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
