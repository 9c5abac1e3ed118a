package service

import (
	"context"
	"testing"
	"time"

	"cyclecoach/internal/analysis"
	"cyclecoach/internal/profile"
	"cyclecoach/internal/store"
)

func TestFTPResolver_Precedence(t *testing.T) {
	now := time.Now().UTC()

	// one recent ride whose stored stream estimates 0.95 * 200 = 190 W
	withStream := func(t *testing.T) *store.DB {
		db := openTestDB(t)
		insertActivity(t, db, ride(1, now.AddDate(0, 0, -3), 200))
		if err := db.SaveStreams(&store.Streams{ActivityID: 1, Watts: constantStream(1500, 200)}); err != nil {
			t.Fatal(err)
		}
		return db
	}

	override := 250

	tests := []struct {
		name       string
		profileFTP *int
		stream     bool
		configFTP  int
		want       FTPResolution
	}{
		{"profile override wins", &override, true, 220, FTPResolution{250, FTPSourceProfile}},
		{"estimate beats config", nil, true, 220, FTPResolution{190, FTPSourceEstimate}},
		{"config without estimate", nil, false, 220, FTPResolution{220, FTPSourceConfig}},
		{"fallback", nil, false, 0, FTPResolution{183, FTPSourceFallback}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openTestDB(t)
			if tt.stream {
				db = withStream(t)
			}

			profiles := profile.NewMemoryStore()
			if err := profiles.Save(context.Background(), &profile.Profile{UserID: "u1", FTP: tt.profileFTP}); err != nil {
				t.Fatal(err)
			}

			src := NewLayeredPowerSource(nil, db, nil, nil, nil, testLogger)
			estimator := analysis.NewFTPEstimator(src, testLogger)
			r := NewFTPResolver(profiles, estimator, db, testConfig(tt.configFTP), testLogger)

			if got := r.Resolve(context.Background(), "u1"); got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFTPResolver_UnknownProfile(t *testing.T) {
	r := NewFTPResolver(profile.NewMemoryStore(), nil, nil, testConfig(240), testLogger)

	got := r.Resolve(context.Background(), "nobody")
	if got.Watts != 240 || got.Source != FTPSourceConfig {
		t.Errorf("Resolve() = %+v, want config 240", got)
	}
}

func TestFTPResolver_IgnoresOldRides(t *testing.T) {
	db := openTestDB(t)
	insertActivity(t, db, ride(1, time.Now().AddDate(-1, 0, 0), 300))
	if err := db.SaveStreams(&store.Streams{ActivityID: 1, Watts: constantStream(1500, 300)}); err != nil {
		t.Fatal(err)
	}

	estimator := analysis.NewFTPEstimator(NewLayeredPowerSource(nil, db, nil, nil, nil, testLogger), testLogger)
	r := NewFTPResolver(nil, estimator, db, testConfig(0), testLogger)

	if got := r.Resolve(context.Background(), "u1"); got.Source != FTPSourceFallback {
		t.Errorf("Resolve() = %+v, want fallback for a ride outside the lookback", got)
	}
}
