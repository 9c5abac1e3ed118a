package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cyclecoach/internal/analysis"
	"cyclecoach/internal/metrics"
	"cyclecoach/internal/store"
	"cyclecoach/internal/strava"

	"github.com/rs/zerolog"
)

// StravaAPI is the part of the Strava client used by sync
type StravaAPI interface {
	GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]strava.Activity, error)
	GetActivity(ctx context.Context, activityID int64) (*strava.DetailedActivity, error)
	GetActivityStreams(ctx context.Context, activityID int64) (*strava.Streams, error)
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// SyncService orchestrates syncing data from Strava
type SyncService struct {
	client   StravaAPI
	store    *store.DB
	resolver *FTPResolver
	metrics  metrics.Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSyncService creates a sync service. The resolver supplies the FTP that
// per-ride metrics and the fitness trend are computed against.
func NewSyncService(client StravaAPI, db *store.DB, resolver *FTPResolver, m metrics.Recorder, logger zerolog.Logger) *SyncService {
	if m == nil {
		m = metrics.Noop{}
	}
	return &SyncService{
		client:   client,
		store:    db,
		resolver: resolver,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase           string
	Total           int
	Completed       int
	CurrentActivity string
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	ActivitiesFetched int
	ActivitiesStored  int
	DetailsFetched    int
	StreamsFetched    int
	MetricsComputed   int
	RecordsUpdated    int
	TrendDays         int
	FTP               FTPResolution
	Errors            []error
}

// SyncAll runs every phase in order: activities, ride details, streams,
// metrics and power records, then the fitness trend. Per-item failures are collected in the
// result; a phase-level failure stops the sync. progress, when non-nil, is
// closed on return.
func (s *SyncService) SyncAll(ctx context.Context, userID string, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{}
	phases := []struct {
		name string
		run  func(context.Context, chan<- SyncProgress, *SyncResult) error
	}{
		{PhaseActivities, s.syncActivities},
		{PhaseDetails, s.syncDetails},
		{PhaseStreams, s.syncStreams},
		{PhaseMetrics, func(ctx context.Context, p chan<- SyncProgress, r *SyncResult) error {
			return s.computeMetrics(ctx, userID, p, r)
		}},
		{PhaseFitness, s.computeFitnessTrend},
	}

	for _, phase := range phases {
		start := time.Now()
		err := phase.run(ctx, progress, result)
		s.metrics.ObserveSyncPhase(phase.name, time.Since(start))
		if err != nil {
			return result, fmt.Errorf("sync %s: %w", phase.name, err)
		}
	}

	if err := s.store.SetSyncTime(store.SyncKeyLastFullSync, s.now()); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("recording sync time: %w", err))
	}

	s.logger.Info().
		Int("fetched", result.ActivitiesFetched).
		Int("stored", result.ActivitiesStored).
		Int("details", result.DetailsFetched).
		Int("streams", result.StreamsFetched).
		Int("metrics", result.MetricsComputed).
		Int("records", result.RecordsUpdated).
		Int("errors", len(result.Errors)).
		Msg("sync complete")

	return result, nil
}

func send(progress chan<- SyncProgress, p SyncProgress) {
	if progress != nil {
		progress <- p
	}
}

// syncActivities stores every activity started since the last sync
func (s *SyncService) syncActivities(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	after, err := s.store.GetSyncTime(store.SyncKeyLastActivitySync)
	if err != nil {
		return fmt.Errorf("reading last sync time: %w", err)
	}
	startedAt := s.now()

	send(progress, SyncProgress{Phase: PhaseActivities})

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		activities, err := s.client.GetActivities(ctx, after, page, activitiesPerPage)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}
		result.ActivitiesFetched += len(activities)

		for i := range activities {
			a := activities[i].ToStore()
			if err := s.store.UpsertActivity(a); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("storing activity %d: %w", a.ID, err))
				continue
			}
			result.ActivitiesStored++
		}

		send(progress, SyncProgress{
			Phase:     PhaseActivities,
			Total:     result.ActivitiesFetched,
			Completed: result.ActivitiesStored,
		})

		if len(activities) < activitiesPerPage {
			break
		}
	}

	return s.store.SetSyncTime(store.SyncKeyLastActivitySync, startedAt)
}

// syncDetails fetches the description and private note of rides, newest
// first and a batch at a time. Rides left over are picked up by later syncs.
func (s *SyncService) syncDetails(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	activities, err := s.store.GetActivitiesNeedingDetails(analysis.PowerBearingTypes(), DetailBatchSize)
	if err != nil {
		return fmt.Errorf("listing activities needing details: %w", err)
	}
	if len(activities) == 0 {
		return nil
	}

	for i, a := range activities {
		if err := ctx.Err(); err != nil {
			return err
		}
		send(progress, SyncProgress{Phase: PhaseDetails, Total: len(activities), Completed: i, CurrentActivity: a.Name})

		detail, err := s.client.GetActivity(ctx, a.ID)
		switch {
		case errors.Is(err, strava.ErrNotFound):
			// deleted on Strava since the listing; don't ask again
			if err := s.store.MarkDetailsSynced(a.ID); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("marking details synced for %d: %w", a.ID, err))
			}
			continue
		case err != nil:
			result.Errors = append(result.Errors, fmt.Errorf("activity %d detail: %w", a.ID, err))
			continue
		}

		if err := s.store.UpdateActivityNotes(a.ID, detail.Description, detail.PrivateNote); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("saving notes for %d: %w", a.ID, err))
			continue
		}
		result.DetailsFetched++
	}

	send(progress, SyncProgress{Phase: PhaseDetails, Total: len(activities), Completed: len(activities)})
	return nil
}

// syncStreams fetches power, heart rate and cadence streams for rides with
// power, a batch at a time
func (s *SyncService) syncStreams(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	activities, err := s.store.GetActivitiesNeedingStreams(StreamBatchSize)
	if err != nil {
		return fmt.Errorf("listing activities needing streams: %w", err)
	}
	if len(activities) == 0 {
		return nil
	}

	for i, a := range activities {
		if err := ctx.Err(); err != nil {
			return err
		}
		send(progress, SyncProgress{Phase: PhaseStreams, Total: len(activities), Completed: i, CurrentActivity: a.Name})

		streams, err := s.client.GetActivityStreams(ctx, a.ID)
		if err != nil && !errors.Is(err, strava.ErrNotFound) {
			result.Errors = append(result.Errors, fmt.Errorf("activity %d (%s) streams: %w", a.ID, a.Name, err))
			continue
		}

		if streams.HasWatts() {
			if err := s.store.SaveStreams(streams.ToStore(a.ID)); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("saving streams for %d: %w", a.ID, err))
				continue
			}
			result.StreamsFetched++
		}

		// also marks rides whose power stream Strava no longer serves
		if err := s.store.MarkStreamsSynced(a.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("marking streams synced for %d: %w", a.ID, err))
		}
	}

	send(progress, SyncProgress{Phase: PhaseStreams, Total: len(activities), Completed: len(activities)})
	return nil
}

// computeMetrics derives per-ride metrics and power records. Stored metrics
// computed against a different FTP are discarded and recomputed.
func (s *SyncService) computeMetrics(ctx context.Context, userID string, progress chan<- SyncProgress, result *SyncResult) error {
	ftp := s.resolver.Resolve(ctx, userID)
	result.FTP = ftp

	if err := s.invalidateStaleMetrics(ftp.Watts); err != nil {
		return err
	}

	activities, err := s.store.GetActivitiesNeedingMetrics()
	if err != nil {
		return fmt.Errorf("listing activities needing metrics: %w", err)
	}

	for i := range activities {
		a := &activities[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		send(progress, SyncProgress{Phase: PhaseMetrics, Total: len(activities), Completed: i, CurrentActivity: a.Name})

		streams, err := s.store.GetStreams(a.ID)
		if err != nil && !errors.Is(err, store.ErrNoStreams) {
			result.Errors = append(result.Errors, fmt.Errorf("reading streams for %d: %w", a.ID, err))
			continue
		}
		stream := toAnalysisStream(streams)

		m := analysis.ComputeActivityMetrics(toAnalysisActivity(a), stream, float64(ftp.Watts))
		if err := s.store.SaveActivityMetrics(toStoreMetrics(m)); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("saving metrics for %d: %w", a.ID, err))
			continue
		}
		result.MetricsComputed++

		s.updatePowerRecords(a, stream, result)
	}

	if len(activities) > 0 {
		send(progress, SyncProgress{Phase: PhaseMetrics, Total: len(activities), Completed: len(activities)})
	}
	return nil
}

func (s *SyncService) invalidateStaleMetrics(ftp int) error {
	stored, err := s.store.GetSyncState(store.SyncKeyMetricsFTP)
	if err != nil {
		return fmt.Errorf("reading metrics FTP: %w", err)
	}

	current := strconv.Itoa(ftp)
	if stored == current {
		return nil
	}

	if stored != "" {
		s.logger.Info().Str("previous", stored).Int("ftp", ftp).Msg("FTP changed, recomputing ride metrics")
		if err := s.store.DeleteAllMetrics(); err != nil {
			return fmt.Errorf("clearing metrics: %w", err)
		}
	}
	return s.store.SetSyncState(store.SyncKeyMetricsFTP, current)
}

func (s *SyncService) updatePowerRecords(a *store.Activity, stream analysis.Stream, result *SyncResult) {
	for duration, effort := range analysis.PowerCurve(stream) {
		pr := &store.PowerRecord{
			Category:        analysis.EffortCategories[duration],
			ActivityID:      a.ID,
			DurationSeconds: duration,
			AvgWatts:        effort.AvgWatts,
			AchievedAt:      a.StartDate,
			StartOffset:     effort.StartOffset,
			EndOffset:       effort.EndOffset,
		}
		if effort.AvgHeartrate > 0 {
			hr := effort.AvgHeartrate
			pr.AvgHeartrate = &hr
		}

		updated, err := s.store.UpsertPowerRecord(pr)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("saving %s record for %d: %w", pr.Category, a.ID, err))
			continue
		}
		if updated {
			result.RecordsUpdated++
		}
	}
}

// computeFitnessTrend replays every stored activity and replaces the
// persisted daily CTL/ATL/TSB series
func (s *SyncService) computeFitnessTrend(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	rows, err := s.store.ListActivitiesSince(time.Time{})
	if err != nil {
		return fmt.Errorf("listing activities: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	send(progress, SyncProgress{Phase: PhaseFitness, Total: 1})

	ftp := float64(result.FTP.Watts)
	loads := analysis.DailyLoadsFromActivities(toAnalysisActivities(rows), ftp)
	trends := BuildFitnessTrends(loads)
	if err := s.store.ReplaceFitnessTrends(trends); err != nil {
		return fmt.Errorf("saving fitness trend: %w", err)
	}
	result.TrendDays = len(trends)

	send(progress, SyncProgress{Phase: PhaseFitness, Total: 1, Completed: 1})
	return nil
}

// BuildFitnessTrends converts the daily model into stored rows with rolling
// 7-day ride counts and TSS totals
func BuildFitnessTrends(loads []analysis.DailyLoad) []store.FitnessTrend {
	series := analysis.CalculateFitnessTrend(loads)
	if len(series) == 0 {
		return nil
	}

	type day struct {
		tss   float64
		rides int
	}
	byDay := make(map[string]day, len(loads))
	for _, l := range loads {
		key := l.Date.UTC().Format(time.DateOnly)
		d := byDay[key]
		d.tss += l.TSS
		if l.TSS > 0 {
			d.rides++
		}
		byDay[key] = d
	}

	trends := make([]store.FitnessTrend, len(series))
	var windowTSS float64
	var windowRides int
	for i, m := range series {
		key := m.Date.Format(time.DateOnly)
		today := byDay[key]
		windowTSS += today.tss
		windowRides += today.rides

		if i >= trendRollingDays {
			old := byDay[series[i-trendRollingDays].Date.Format(time.DateOnly)]
			windowTSS -= old.tss
			windowRides -= old.rides
		}

		trends[i] = store.FitnessTrend{
			Date:        key,
			TSS:         today.tss,
			CTL:         m.CTL,
			ATL:         m.ATL,
			TSB:         m.TSB,
			RideCount7d: windowRides,
			TotalTSS7d:  windowTSS,
		}
	}
	return trends
}

// RateLimitStatus returns the Strava requests left in each window
func (s *SyncService) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return s.client.RateLimitStatus()
}
