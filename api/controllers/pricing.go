package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/api/responses"
	"github.com/jmoris/stpark-backend/api/validators"
	"github.com/jmoris/stpark-backend/internal/pricing"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/logger"
)

type createProfileRequest struct {
	SectorID   uuid.UUID  `json:"sector_id" validate:"required,uuid4"`
	Name       string     `json:"name" validate:"required,min=2,max=120"`
	ActiveFrom time.Time  `json:"active_from" validate:"required"`
	ActiveTo   *time.Time `json:"active_to,omitempty"`
}

// PricingProfileCreate registers a tariff profile for a sector.
func PricingProfileCreate(repo pricing.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.ActiveTo != nil && payload.ActiveTo.Before(payload.ActiveFrom) {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "active_to precedes active_from"))
			return
		}

		profile := models.PricingProfile{
			SectorID:   payload.SectorID,
			Name:       validators.SanitizeString(payload.Name, 120),
			ActiveFrom: payload.ActiveFrom,
			ActiveTo:   payload.ActiveTo,
			IsActive:   true,
		}
		if err := repo.CreateProfile(r.Context(), &profile); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newProfileResponse(&profile))
	}
}

// PricingProfileDetail fetches a profile with its rules.
func PricingProfileDetail(repo pricing.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, err := pathUUID(r, "profileId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := repo.FindProfileByID(r.Context(), profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProfileResponse(profile))
	}
}

// PricingProfileList returns a sector's profiles, newest window first.
func PricingProfileList(repo pricing.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sectorID, err := uuid.Parse(r.URL.Query().Get("sector_id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "sector_id query parameter required"))
			return
		}

		profiles, err := repo.ListProfilesBySector(r.Context(), sectorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]profileResponse, 0, len(profiles))
		for i := range profiles {
			out = append(out, newProfileResponse(&profiles[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type createRuleRequest struct {
	RuleType           string           `json:"rule_type" validate:"required,oneof=hourly fixed"`
	MinDurationMinutes int64            `json:"min_duration_minutes" validate:"gte=0"`
	MaxDurationMinutes *int64           `json:"max_duration_minutes,omitempty" validate:"omitempty,gt=0"`
	PricePerMinute     *decimal.Decimal `json:"price_per_minute,omitempty"`
	FixedPrice         *decimal.Decimal `json:"fixed_price,omitempty"`
	DailyMaxAmount     *decimal.Decimal `json:"daily_max_amount,omitempty"`
	MinAmount          *decimal.Decimal `json:"min_amount,omitempty"`
	MinAmountIsBase    bool             `json:"min_amount_is_base"`
	DaysOfWeek         []int64          `json:"days_of_week" validate:"required,min=1,max=7,dive,gte=0,lte=6"`
	StartTime          string           `json:"start_time" validate:"required"`
	EndTime            string           `json:"end_time" validate:"required"`
	Priority           int              `json:"priority"`
}

// PricingRuleCreate attaches a rule to an existing profile.
func PricingRuleCreate(repo pricing.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, err := pathUUID(r, "profileId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := repo.FindProfileByID(r.Context(), profileID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createRuleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule := models.PricingRule{
			ProfileID:          profileID,
			RuleType:           enums.RuleType(payload.RuleType),
			MinDurationMinutes: payload.MinDurationMinutes,
			MaxDurationMinutes: payload.MaxDurationMinutes,
			PricePerMinute:     payload.PricePerMinute,
			FixedPrice:         payload.FixedPrice,
			DailyMaxAmount:     payload.DailyMaxAmount,
			MinAmount:          payload.MinAmount,
			MinAmountIsBase:    payload.MinAmountIsBase,
			DaysOfWeek:         pq.Int64Array(payload.DaysOfWeek),
			StartTime:          payload.StartTime,
			EndTime:            payload.EndTime,
			Priority:           payload.Priority,
			IsActive:           true,
		}

		// Reject rules the evaluator cannot interpret before persisting.
		if _, err := pricing.RulesFromModels([]models.PricingRule{rule}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.CreateRule(r.Context(), &rule); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newRuleResponse(rule))
	}
}

type profileResponse struct {
	ID         uuid.UUID      `json:"id"`
	SectorID   uuid.UUID      `json:"sector_id"`
	Name       string         `json:"name"`
	ActiveFrom time.Time      `json:"active_from"`
	ActiveTo   *time.Time     `json:"active_to,omitempty"`
	IsActive   bool           `json:"is_active"`
	Rules      []ruleResponse `json:"rules"`
}

type ruleResponse struct {
	ID                 uuid.UUID        `json:"id"`
	RuleType           string           `json:"rule_type"`
	MinDurationMinutes int64            `json:"min_duration_minutes"`
	MaxDurationMinutes *int64           `json:"max_duration_minutes,omitempty"`
	PricePerMinute     *decimal.Decimal `json:"price_per_minute,omitempty"`
	FixedPrice         *decimal.Decimal `json:"fixed_price,omitempty"`
	DailyMaxAmount     *decimal.Decimal `json:"daily_max_amount,omitempty"`
	MinAmount          *decimal.Decimal `json:"min_amount,omitempty"`
	MinAmountIsBase    bool             `json:"min_amount_is_base"`
	DaysOfWeek         []int64          `json:"days_of_week"`
	StartTime          string           `json:"start_time"`
	EndTime            string           `json:"end_time"`
	Priority           int              `json:"priority"`
	IsActive           bool             `json:"is_active"`
}

func newProfileResponse(profile *models.PricingProfile) profileResponse {
	if profile == nil {
		return profileResponse{}
	}
	rules := make([]ruleResponse, 0, len(profile.Rules))
	for _, rule := range profile.Rules {
		rules = append(rules, newRuleResponse(rule))
	}
	return profileResponse{
		ID:         profile.ID,
		SectorID:   profile.SectorID,
		Name:       profile.Name,
		ActiveFrom: profile.ActiveFrom,
		ActiveTo:   profile.ActiveTo,
		IsActive:   profile.IsActive,
		Rules:      rules,
	}
}

func newRuleResponse(rule models.PricingRule) ruleResponse {
	return ruleResponse{
		ID:                 rule.ID,
		RuleType:           string(rule.RuleType),
		MinDurationMinutes: rule.MinDurationMinutes,
		MaxDurationMinutes: rule.MaxDurationMinutes,
		PricePerMinute:     rule.PricePerMinute,
		FixedPrice:         rule.FixedPrice,
		DailyMaxAmount:     rule.DailyMaxAmount,
		MinAmount:          rule.MinAmount,
		MinAmountIsBase:    rule.MinAmountIsBase,
		DaysOfWeek:         []int64(rule.DaysOfWeek),
		StartTime:          rule.StartTime,
		EndTime:            rule.EndTime,
		Priority:           rule.Priority,
		IsActive:           rule.IsActive,
	}
}
