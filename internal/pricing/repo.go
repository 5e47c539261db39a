package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmoris/stpark-backend/pkg/db/models"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

// Repository manages persistence for pricing profiles and their rules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProfile(ctx context.Context, profile *models.PricingProfile) error
	FindProfileByID(ctx context.Context, id uuid.UUID) (*models.PricingProfile, error)
	ListProfilesBySector(ctx context.Context, sectorID uuid.UUID) ([]models.PricingProfile, error)
	ActiveProfileFor(ctx context.Context, sectorID uuid.UUID, at time.Time) (*models.PricingProfile, error)
	CreateRule(ctx context.Context, rule *models.PricingRule) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a pricing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProfile(ctx context.Context, profile *models.PricingProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *repository) FindProfileByID(ctx context.Context, id uuid.UUID) (*models.PricingProfile, error) {
	var profile models.PricingProfile
	if err := r.db.WithContext(ctx).
		Preload("Rules").
		First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing profile not found")
		}
		return nil, err
	}
	return &profile, nil
}

func (r *repository) ListProfilesBySector(ctx context.Context, sectorID uuid.UUID) ([]models.PricingProfile, error) {
	var profiles []models.PricingProfile
	if err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("sector_id = ?", sectorID).
		Order("active_from DESC").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// ActiveProfileFor returns the profile covering the instant, newest activity
// window first, or nil when the sector has none.
func (r *repository) ActiveProfileFor(ctx context.Context, sectorID uuid.UUID, at time.Time) (*models.PricingProfile, error) {
	var profile models.PricingProfile
	err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("sector_id = ? AND is_active = ? AND active_from <= ?", sectorID, true, at).
		Where("active_to IS NULL OR active_to >= ?", at).
		Order("active_from DESC").
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *repository) CreateRule(ctx context.Context, rule *models.PricingRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

// Resolver turns persisted profiles into evaluable rule sets.
type Resolver struct {
	repo Repository
}

// NewResolver wires a rule resolver over the pricing repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ActiveRulesFor loads the sector's active profile at the instant and
// converts its rules. A sector without an active profile yields an empty
// set; evaluation reports the uncovered interval as a warning.
func (r *Resolver) ActiveRulesFor(ctx context.Context, sectorID uuid.UUID, at time.Time) ([]Rule, error) {
	profile, err := r.repo.ActiveProfileFor(ctx, sectorID, at)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}
	return RulesFromModels(profile.Rules)
}
