package service

import (
	"context"

	"backoffice/internal/apperrors"
	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/shopspring/decimal"
)

// SettingsProvider resolves company settings once per operation.
type SettingsProvider interface {
	Current(ctx context.Context) (model.Settings, error)
	SetPointsPrice(ctx context.Context, caller model.Caller, price string) (model.Settings, error)
}

type settingsProvider struct {
	repo     repository.SettingsRepository
	defaults model.Settings
}

// NewSettingsProvider falls back to defaults for keys that were never stored.
func NewSettingsProvider(repo repository.SettingsRepository, defaults model.Settings) SettingsProvider {
	return &settingsProvider{repo: repo, defaults: defaults}
}

func (p *settingsProvider) Current(ctx context.Context) (model.Settings, error) {
	settings := p.defaults

	raw, ok, err := p.repo.Get(ctx, model.SettingPointsPrice)
	if err != nil {
		return settings, fail(ctx, "load settings", err)
	}
	if ok {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return settings, fail(ctx, "load settings", apperrors.Invariant("stored points_price %q is not a number", raw))
		}
		settings.PointsPrice = price
	}
	return settings, nil
}

func (p *settingsProvider) SetPointsPrice(ctx context.Context, caller model.Caller, price string) (model.Settings, error) {
	if err := requireRole(caller, model.RoleAdmin); err != nil {
		return model.Settings{}, err
	}
	value, err := parseNonNegative("points_price", price)
	if err != nil {
		return model.Settings{}, err
	}
	if err := p.repo.Set(ctx, model.SettingPointsPrice, value.String()); err != nil {
		return model.Settings{}, fail(ctx, "set points price", err)
	}
	return p.Current(ctx)
}
