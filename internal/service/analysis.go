package service

import (
	"context"
	"fmt"
	"time"

	"cyclecoach/internal/analysis"
	"cyclecoach/internal/config"
	"cyclecoach/internal/events"
	"cyclecoach/internal/metrics"
	"cyclecoach/internal/profile"
	"cyclecoach/internal/store"

	"github.com/rs/zerolog"
)

// SnapshotSource says how the fitness numbers of a snapshot were obtained
type SnapshotSource string

const (
	SnapshotComputed    SnapshotSource = "computed"
	SnapshotPrivateNote SnapshotSource = "private_note"
	SnapshotNoData      SnapshotSource = "none"
)

// RideLoad is one recent ride with its load against the snapshot FTP
type RideLoad struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	StartDate  time.Time `json:"start_date"`
	DistanceKm float64   `json:"distance_km"`
	MovingTime int       `json:"moving_time_s"`
	Power      float64   `json:"power_w,omitempty"`
	TSS        int       `json:"tss"`
	IF         float64   `json:"intensity_factor,omitempty"`
}

// Snapshot is the training state of a rider at GeneratedAt
type Snapshot struct {
	UserID        string               `json:"user_id"`
	GeneratedAt   time.Time            `json:"generated_at"`
	FTP           FTPResolution        `json:"ftp"`
	Source        SnapshotSource       `json:"source"`
	Fitness       analysis.FitnessData `json:"fitness"`
	Assessment    analysis.Assessment  `json:"assessment"`
	Latest        *RideLoad            `json:"latest,omitempty"`
	Recent        []RideLoad           `json:"recent"`
	ActivityCount int                  `json:"activity_count"`
	WindowDays    int                  `json:"window_days"`
}

// Tier returns the snapshot's coaching tier
func (s *Snapshot) Tier() analysis.Tier {
	return s.Assessment.Tier
}

// AnalysisService produces training snapshots from stored activities
type AnalysisService struct {
	store      *store.DB
	resolver   *FTPResolver
	profiles   profile.Store
	publisher  events.Publisher
	metrics    metrics.Recorder
	thresholds analysis.Thresholds
	windowDays int
	now        func() time.Time
	logger     zerolog.Logger
}

// NewAnalysisService wires the snapshot pipeline. profiles and publisher may
// be nil.
func NewAnalysisService(db *store.DB, resolver *FTPResolver, profiles profile.Store, publisher events.Publisher, m metrics.Recorder, cfg *config.Config, logger zerolog.Logger) *AnalysisService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &AnalysisService{
		store:      db,
		resolver:   resolver,
		profiles:   profiles,
		publisher:  publisher,
		metrics:    m,
		thresholds: cfg.Analysis.Thresholds.Thresholds(),
		windowDays: cfg.Analysis.WindowDays,
		now:        time.Now,
		logger:     logger,
	}
}

// Snapshot replays the analysis window and classifies the result. The
// snapshot is written back to the rider profile and published; failures of
// those side effects are logged, not returned.
func (s *AnalysisService) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	now := s.now().UTC()
	rows, err := s.store.ListActivitiesSince(now.AddDate(0, 0, -s.windowDays))
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}
	activities := toAnalysisActivities(rows)

	ftp := s.resolver.Resolve(ctx, userID)
	snap := &Snapshot{
		UserID:        userID,
		GeneratedAt:   now,
		FTP:           ftp,
		ActivityCount: len(activities),
		WindowDays:    s.windowDays,
	}

	var latest analysis.Activity
	if len(activities) > 0 {
		latest = activities[len(activities)-1]
		load := rideLoad(latest, float64(ftp.Watts))
		snap.Latest = &load
	}
	snap.Recent = recentLoads(activities, float64(ftp.Watts), RecentActivitiesLimit)

	overtrainingFlag := false
	loads := analysis.DailyLoadsFromActivities(activities, float64(ftp.Watts))
	if analysis.HasLoad(loads) {
		snap.Source = SnapshotComputed
		snap.Fitness = analysis.CalculateFitnessAndFatigue(loads)
	} else {
		snap.Source = SnapshotNoData
		var legacy analysis.MetricsSource = analysis.NoteMetricsSource{Activities: activities}
		m, ok, err := legacy.LatestMetrics(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			snap.Source = SnapshotPrivateNote
			snap.Fitness = m.Fitness
			overtrainingFlag = m.Overtraining
		}
	}

	latestTSS := 0
	if snap.Latest != nil {
		latestTSS = snap.Latest.TSS
	}
	snap.Assessment = analysis.Assess(latest, latestTSS, snap.Fitness, s.thresholds)
	if overtrainingFlag && snap.Assessment.Tier != analysis.TierOvertraining {
		snap.Assessment = analysis.Assessment{
			Tier:      analysis.TierOvertraining,
			Narrative: analysis.Narrative(latest, latestTSS, snap.Fitness, analysis.TierOvertraining),
		}
	}

	s.record(ctx, snap)
	return snap, nil
}

func (s *AnalysisService) record(ctx context.Context, snap *Snapshot) {
	s.metrics.SetFitness(snap.Fitness.CTL, snap.Fitness.ATL, snap.Fitness.TSB)
	s.metrics.SetFTP(float64(snap.FTP.Watts), string(snap.FTP.Source))

	latestTSS := 0
	if snap.Latest != nil {
		latestTSS = snap.Latest.TSS
	}

	if s.profiles != nil {
		tp := profile.TrainingProfile{
			TSS:       latestTSS,
			CTL:       snap.Fitness.CTL,
			ATL:       snap.Fitness.ATL,
			Form:      snap.Fitness.TSB,
			Tier:      snap.Assessment.Tier.String(),
			FTP:       snap.FTP.Watts,
			UpdatedAt: snap.GeneratedAt,
		}
		if err := s.profiles.UpdateTrainingProfile(ctx, snap.UserID, tp); err != nil {
			s.logger.Warn().Err(err).Str("user_id", snap.UserID).Msg("saving training profile")
		}
	}

	err := s.publisher.PublishSnapshot(ctx, events.SnapshotEvent{
		UserID:     snap.UserID,
		OccurredAt: snap.GeneratedAt,
		FTP:        snap.FTP.Watts,
		FTPSource:  string(snap.FTP.Source),
		TSS:        latestTSS,
		CTL:        snap.Fitness.CTL,
		ATL:        snap.Fitness.ATL,
		TSB:        snap.Fitness.TSB,
		Tier:       snap.Assessment.Tier.String(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", snap.UserID).Msg("publishing snapshot")
	}

	s.logger.Info().
		Str("user_id", snap.UserID).
		Int("ftp", snap.FTP.Watts).
		Str("ftp_source", string(snap.FTP.Source)).
		Float64("ctl", snap.Fitness.CTL).
		Float64("atl", snap.Fitness.ATL).
		Float64("tsb", snap.Fitness.TSB).
		Stringer("tier", snap.Assessment.Tier).
		Msg("snapshot computed")
}

func rideLoad(a analysis.Activity, ftp float64) RideLoad {
	load := RideLoad{
		ID:         a.ID,
		Name:       a.Name,
		Type:       a.Type,
		StartDate:  a.StartDate,
		DistanceKm: a.DistanceKm(),
		MovingTime: a.MovingTimeS,
		TSS:        analysis.CalculateTSS(a, ftp),
		IF:         analysis.IntensityFactor(a, ftp),
	}
	if p, ok := a.Power(); ok {
		load.Power = p
	}
	return load
}

// recentLoads returns up to limit activities, newest first
func recentLoads(activities []analysis.Activity, ftp float64, limit int) []RideLoad {
	out := make([]RideLoad, 0, limit)
	for i := len(activities) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, rideLoad(activities[i], ftp))
	}
	return out
}
