package service

import (
	"context"

	"expert-crm/internal/repository"
	"expert-crm/pkg/apierror"
)

type SettingsService struct {
	settings *repository.SettingsRepository
}

func NewSettingsService(settings *repository.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

func (s *SettingsService) LeaseDays(ctx context.Context) (int, error) {
	return s.settings.LeaseDays(ctx)
}

func (s *SettingsService) SetLeaseDays(ctx context.Context, days int) error {
	if days < 1 || days > 365 {
		return apierror.BadRequest("lease_days must be between 1 and 365", "")
	}

	return s.settings.SetLeaseDays(ctx, days)
}
