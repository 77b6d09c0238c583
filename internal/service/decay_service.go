package service

import (
	"context"
	"fmt"
	"time"

	"expert-crm/internal/model"
	"expert-crm/internal/repository"
)

// DecayService assembles the data-decay dashboard. It is a pure reader over
// the tables the reclamation engine writes.
type DecayService struct {
	experts  *repository.ExpertRepository
	audits   *repository.AuditRepository
	settings *repository.SettingsRepository
}

func NewDecayService(experts *repository.ExpertRepository, audits *repository.AuditRepository, settings *repository.SettingsRepository) *DecayService {
	return &DecayService{experts: experts, audits: audits, settings: settings}
}

func (s *DecayService) Snapshot(ctx context.Context) (model.DecayData, error) {
	now := time.Now().UTC()
	in24h := now.Add(24 * time.Hour)
	in7d := now.Add(7 * 24 * time.Hour)
	in15d := now.Add(15 * 24 * time.Hour)

	within24h, err := s.experts.CountExpiringBetween(ctx, now, in24h)
	if err != nil {
		return model.DecayData{}, fmt.Errorf("decay snapshot: %w", err)
	}
	within7d, err := s.experts.CountExpiringBetween(ctx, in24h, in7d)
	if err != nil {
		return model.DecayData{}, fmt.Errorf("decay snapshot: %w", err)
	}
	within15d, err := s.experts.CountExpiringBetween(ctx, in7d, in15d)
	if err != nil {
		return model.DecayData{}, fmt.Errorf("decay snapshot: %w", err)
	}

	expiring, err := s.experts.ListExpiringSoon(ctx, 100)
	if err != nil {
		return model.DecayData{}, fmt.Errorf("decay snapshot: %w", err)
	}

	recentForced, err := s.audits.ListRecentByAction(ctx, model.AuditActionForceExpire, 50)
	if err != nil {
		return model.DecayData{}, fmt.Errorf("decay snapshot: %w", err)
	}

	leaseDays, err := s.settings.LeaseDays(ctx)
	if err != nil {
		return model.DecayData{}, fmt.Errorf("decay snapshot: %w", err)
	}

	return model.DecayData{
		Heatmap: model.DecayHeatmap{
			Within24h: within24h,
			Within7d:  within7d,
			Within15d: within15d,
		},
		ExpiringExperts: expiring,
		RecentForced:    recentForced,
		LeaseDays:       leaseDays,
	}, nil
}
