package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"cyclecoach/internal/coach"
	"cyclecoach/internal/profile"
	"cyclecoach/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 200
	maxTrendDays         = 365 * 3
)

type handler struct {
	deps Deps

	// one sync at a time against the shared store
	syncMu sync.Mutex
}

func (h *handler) getFitness(c *gin.Context) {
	snap, err := h.deps.Analysis.Snapshot(c.Request.Context(), userID(c))
	if err != nil {
		h.internalError(c, "computing snapshot", err)
		return
	}
	writeJSON(c, http.StatusOK, snap)
}

func (h *handler) getFTP(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.deps.FTP.Resolve(c.Request.Context(), userID(c)))
}

func (h *handler) getProfile(c *gin.Context) {
	if h.deps.Profiles == nil {
		abortWithError(c, http.StatusServiceUnavailable, "profiles are not configured")
		return
	}

	p, err := h.deps.Profiles.Get(c.Request.Context(), userID(c))
	if errors.Is(err, profile.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		h.internalError(c, "loading profile", err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (h *handler) updateProfile(c *gin.Context) {
	if h.deps.Profiles == nil {
		abortWithError(c, http.StatusServiceUnavailable, "profiles are not configured")
		return
	}

	var u profile.Update
	if err := json.NewDecoder(c.Request.Body).Decode(&u); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if u == (profile.Update{}) {
		abortWithError(c, http.StatusBadRequest, "no profile fields to update")
		return
	}
	if err := u.Validate(); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	p, err := profile.Merge(c.Request.Context(), h.deps.Profiles, userID(c), u)
	if err != nil {
		h.internalError(c, "updating profile", err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

// activityResponse is a stored ride with its computed load
type activityResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	StartDate   time.Time `json:"start_date"`
	DistanceKm  float64   `json:"distance_km"`
	MovingTime  int       `json:"moving_time_s"`
	AvgWatts    *float64  `json:"average_watts,omitempty"`
	NormWatts   *float64  `json:"weighted_average_watts,omitempty"`
	TSS         *int      `json:"tss,omitempty"`
	IF          *float64  `json:"intensity_factor,omitempty"`
	BestPower20 *float64  `json:"best_power_20m,omitempty"`
}

func (h *handler) listActivities(c *gin.Context) {
	limit, ok := intQuery(c, "limit", defaultActivityLimit, 1, maxActivityLimit)
	if !ok {
		return
	}
	offset, ok := intQuery(c, "offset", 0, 0, 1<<30)
	if !ok {
		return
	}

	rows, err := h.deps.Queries.GetActivitiesList(limit, offset)
	if err != nil {
		h.internalError(c, "listing activities", err)
		return
	}

	out := make([]activityResponse, len(rows))
	for i, r := range rows {
		a := r.Activity
		out[i] = activityResponse{
			ID:         a.ID,
			Name:       a.Name,
			Type:       a.Type,
			StartDate:  a.StartDate,
			DistanceKm: a.Distance / 1000,
			MovingTime: a.MovingTime,
			AvgWatts:   a.AverageWatts,
			NormWatts:  a.WeightedAverageWatts,
		}
		if m := r.Metrics; m != nil {
			tss := m.TSS
			out[i].TSS = &tss
			out[i].IF = m.IntensityFactor
			out[i].BestPower20 = m.BestPower20m
		}
	}
	writeJSON(c, http.StatusOK, out)
}

type trendPoint struct {
	Date        string  `json:"date"`
	TSS         float64 `json:"tss"`
	CTL         float64 `json:"ctl"`
	ATL         float64 `json:"atl"`
	TSB         float64 `json:"tsb"`
	RideCount7d int     `json:"ride_count_7d"`
	TotalTSS7d  float64 `json:"total_tss_7d"`
}

func (h *handler) getTrend(c *gin.Context) {
	days, ok := intQuery(c, "days", service.DefaultTrendDays, 1, maxTrendDays)
	if !ok {
		return
	}

	trends, err := h.deps.Queries.GetFitnessTrend(days)
	if err != nil {
		h.internalError(c, "reading fitness trend", err)
		return
	}

	out := make([]trendPoint, len(trends))
	for i, t := range trends {
		out[i] = trendPoint(t)
	}
	writeJSON(c, http.StatusOK, out)
}

type syncResponse struct {
	ActivitiesFetched int                   `json:"activities_fetched"`
	ActivitiesStored  int                   `json:"activities_stored"`
	StreamsFetched    int                   `json:"streams_fetched"`
	MetricsComputed   int                   `json:"metrics_computed"`
	RecordsUpdated    int                   `json:"records_updated"`
	TrendDays         int                   `json:"trend_days"`
	FTP               service.FTPResolution `json:"ftp"`
	Errors            []string              `json:"errors"`
}

func (h *handler) sync(c *gin.Context) {
	if h.deps.Sync == nil {
		abortWithError(c, http.StatusServiceUnavailable, "sync is not configured")
		return
	}
	if !h.syncMu.TryLock() {
		abortWithError(c, http.StatusConflict, "a sync is already running")
		return
	}
	defer h.syncMu.Unlock()

	result, err := h.deps.Sync.SyncAll(c.Request.Context(), userID(c), nil)
	if err != nil {
		h.internalError(c, "syncing", err)
		return
	}

	resp := syncResponse{
		ActivitiesFetched: result.ActivitiesFetched,
		ActivitiesStored:  result.ActivitiesStored,
		StreamsFetched:    result.StreamsFetched,
		MetricsComputed:   result.MetricsComputed,
		RecordsUpdated:    result.RecordsUpdated,
		TrendDays:         result.TrendDays,
		FTP:               result.FTP,
		Errors:            make([]string, len(result.Errors)),
	}
	for i, e := range result.Errors {
		resp.Errors[i] = e.Error()
	}
	writeJSON(c, http.StatusOK, resp)
}

type chatRequest struct {
	Messages []coach.Message `json:"messages"`
}

func (h *handler) chat(c *gin.Context) {
	if h.deps.Coach == nil {
		abortWithError(c, http.StatusServiceUnavailable, "coach is not configured")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		abortWithError(c, http.StatusBadRequest, "messages must not be empty")
		return
	}
	for _, m := range req.Messages {
		if m.Role != coach.RoleUser && m.Role != coach.RoleAssistant {
			abortWithError(c, http.StatusBadRequest, "message role must be user or assistant")
			return
		}
	}

	ctx := c.Request.Context()
	snap, err := h.deps.Analysis.Snapshot(ctx, userID(c))
	if err != nil {
		h.internalError(c, "computing snapshot", err)
		return
	}

	var p *profile.Profile
	if h.deps.Profiles != nil {
		p, err = h.deps.Profiles.Get(ctx, userID(c))
		if err != nil && !errors.Is(err, profile.ErrNotFound) {
			h.deps.Logger.Warn().Err(err).Str("user_id", userID(c)).Msg("loading profile for chat")
		}
	}

	reply, err := h.deps.Coach.Reply(ctx, snap, p, req.Messages)
	if err != nil {
		h.deps.Logger.Error().Err(err).Str("request_id", c.GetString(ContextRequestIDKey)).Msg("coach reply failed")
		abortWithError(c, http.StatusBadGateway, "coach is unavailable")
		return
	}
	writeJSON(c, http.StatusOK, reply)
}

func (h *handler) internalError(c *gin.Context, what string, err error) {
	h.deps.Logger.Error().Err(err).Str("request_id", c.GetString(ContextRequestIDKey)).Msg(what)
	abortWithError(c, http.StatusInternalServerError, what+" failed")
}

// intQuery parses an optional integer query parameter within [lo, hi].
// It writes a 400 and returns false on bad input.
func intQuery(c *gin.Context, name string, def, lo, hi int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		abortWithError(c, http.StatusBadRequest, name+" must be an integer between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi))
		return 0, false
	}
	return v, true
}
