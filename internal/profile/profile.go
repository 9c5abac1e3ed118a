// Package profile stores rider profiles: the FTP override, goals and the
// last computed training snapshot.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when no profile exists for a user
var ErrNotFound = errors.New("profile not found")

// Profile is one rider's settings and last known training state
type Profile struct {
	UserID          string          `bson:"_id" json:"user_id"`
	Name            string          `bson:"name,omitempty" json:"name,omitempty"`
	FTP             *int            `bson:"ftp,omitempty" json:"ftp,omitempty"` // manual override, watts
	WeightKg        float64         `bson:"weight_kg,omitempty" json:"weight_kg,omitempty"`
	Goals           string          `bson:"goals,omitempty" json:"goals,omitempty"`
	TrainingProfile TrainingProfile `bson:"training_profile" json:"training_profile"`
	UpdatedAt       time.Time       `bson:"updated_at" json:"updated_at"`
}

// TrainingProfile is the latest snapshot written back after analysis
type TrainingProfile struct {
	TSS       int       `bson:"tss" json:"tss"`
	CTL       float64   `bson:"ctl" json:"ctl"`
	ATL       float64   `bson:"atl" json:"atl"`
	Form      float64   `bson:"form" json:"form"`
	Tier      string    `bson:"tier,omitempty" json:"tier,omitempty"`
	FTP       int       `bson:"ftp,omitempty" json:"ftp,omitempty"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// OverrideFTP returns the rider's manual FTP when set to a positive value
func (p *Profile) OverrideFTP() (int, bool) {
	if p == nil || p.FTP == nil || *p.FTP <= 0 {
		return 0, false
	}
	return *p.FTP, true
}

// Summary is a short plain-text description used in coaching prompts
func (p *Profile) Summary() string {
	if p == nil {
		return "No rider profile on file."
	}

	var parts []string
	if p.Name != "" {
		parts = append(parts, "Name: "+p.Name)
	}
	if ftp, ok := p.OverrideFTP(); ok {
		parts = append(parts, fmt.Sprintf("FTP: %d W", ftp))
	}
	if p.WeightKg > 0 {
		parts = append(parts, fmt.Sprintf("Weight: %.1f kg", p.WeightKg))
		if ftp, ok := p.OverrideFTP(); ok {
			parts = append(parts, fmt.Sprintf("Power to weight: %.2f W/kg", float64(ftp)/p.WeightKg))
		}
	}
	if p.Goals != "" {
		parts = append(parts, "Goals: "+p.Goals)
	}
	if len(parts) == 0 {
		return "Rider profile has no details."
	}
	return strings.Join(parts, "\n")
}

// Store persists profiles
type Store interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
	UpdateTrainingProfile(ctx context.Context, userID string, tp TrainingProfile) error
	Close(ctx context.Context) error
}
