// Package httpapi exposes training snapshots, sync and coaching over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"cyclecoach/internal/auth"
	"cyclecoach/internal/coach"
	"cyclecoach/internal/metrics"
	"cyclecoach/internal/profile"
	"cyclecoach/internal/service"
	"cyclecoach/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Snapshotter computes a rider's current training state
type Snapshotter interface {
	Snapshot(ctx context.Context, userID string) (*service.Snapshot, error)
}

// Syncer pulls new data from Strava
type Syncer interface {
	SyncAll(ctx context.Context, userID string, progress chan<- service.SyncProgress) (*service.SyncResult, error)
}

// Querier reads stored rides and the fitness series
type Querier interface {
	GetActivitiesList(limit, offset int) ([]service.ActivityWithMetrics, error)
	GetFitnessTrend(days int) ([]store.FitnessTrend, error)
}

// FTPResolver reports the FTP in effect for a rider
type FTPResolver interface {
	Resolve(ctx context.Context, userID string) service.FTPResolution
}

// Coach answers chat messages
type Coach interface {
	Reply(ctx context.Context, snap *service.Snapshot, p *profile.Profile, messages []coach.Message) (*coach.Reply, error)
}

// Deps are the collaborators of the API. Sync and Coach may be nil, their
// routes then answer 503.
type Deps struct {
	Tokens   *auth.Tokens
	Analysis Snapshotter
	Sync     Syncer
	Queries  Querier
	FTP      FTPResolver
	Coach    Coach
	Profiles profile.Store
	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// NewRouter builds the gin engine with all routes registered
func NewRouter(d Deps) *gin.Engine {
	if d.Metrics == nil {
		d.Metrics = metrics.Noop{}
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(d.Logger), Metrics(d.Metrics))

	h := &handler{deps: d}

	router.GET("/healthz", func(c *gin.Context) {
		writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	v1.Use(Authenticate(d.Tokens))
	{
		v1.GET("/fitness", h.getFitness)
		v1.GET("/ftp", h.getFTP)
		v1.GET("/profile", h.getProfile)
		v1.PUT("/profile", h.updateProfile)
		v1.GET("/activities", h.listActivities)
		v1.GET("/trend", h.getTrend)
		v1.POST("/sync", h.sync)
		v1.POST("/coach/chat", h.chat)
	}

	return router
}

func writeJSON(c *gin.Context, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

func abortWithError(c *gin.Context, status int, message string) {
	writeJSON(c, status, gin.H{"error": message})
	c.Abort()
}
