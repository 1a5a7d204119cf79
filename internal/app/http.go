package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// newHTTPServer builds the diagnostic-only HTTP surface. It is off by
// default and carries no auth; never expose it publicly.
func (a *App) newHTTPServer() *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", a.handleHealthz)
	router.GET("/jobs/peek", a.handleJobsPeek)
	router.GET("/stats", a.handleStats)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
