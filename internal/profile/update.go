package profile

import (
	"context"
	"errors"
	"fmt"
)

// Limits accepted for rider-entered values
const (
	MaxFTP      = 2000
	MaxWeightKg = 300
)

// Update is a partial profile edit. Nil fields are left unchanged; an FTP
// of 0 clears the override so the estimate applies again.
type Update struct {
	Name     *string  `json:"name,omitempty"`
	FTP      *int     `json:"ftp,omitempty"`
	WeightKg *float64 `json:"weight_kg,omitempty"`
	Goals    *string  `json:"goals,omitempty"`
}

// Validate checks the edited values are plausible
func (u Update) Validate() error {
	if u.FTP != nil && (*u.FTP < 0 || *u.FTP > MaxFTP) {
		return fmt.Errorf("ftp must be between 0 and %d", MaxFTP)
	}
	if u.WeightKg != nil && (*u.WeightKg < 0 || *u.WeightKg > MaxWeightKg) {
		return fmt.Errorf("weight_kg must be between 0 and %d", MaxWeightKg)
	}
	return nil
}

// Apply merges the edit into p
func (u Update) Apply(p *Profile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.FTP != nil {
		if *u.FTP == 0 {
			p.FTP = nil
		} else {
			ftp := *u.FTP
			p.FTP = &ftp
		}
	}
	if u.WeightKg != nil {
		p.WeightKg = *u.WeightKg
	}
	if u.Goals != nil {
		p.Goals = *u.Goals
	}
}

// Merge loads the rider's profile, creating it when missing, applies u and
// saves the result.
func Merge(ctx context.Context, s Store, userID string, u Update) (*Profile, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		p = &Profile{UserID: userID}
	case err != nil:
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	u.Apply(p)
	if err := s.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("saving profile: %w", err)
	}
	return p, nil
}
