package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/api/responses"
	"github.com/jmoris/stpark-backend/api/validators"
	"github.com/jmoris/stpark-backend/internal/discount"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	"github.com/jmoris/stpark-backend/pkg/logger"
)

type createDiscountRequest struct {
	Code            string           `json:"code" validate:"required,min=3,max=32"`
	DiscountType    string           `json:"discount_type" validate:"required,oneof=amount percentage pricing_profile"`
	Value           *decimal.Decimal `json:"value,omitempty"`
	MaxAmount       *decimal.Decimal `json:"max_amount,omitempty"`
	MinuteValue     *decimal.Decimal `json:"minute_value,omitempty"`
	MinAmount       *decimal.Decimal `json:"min_amount,omitempty"`
	MinimumDuration *int64           `json:"minimum_duration,omitempty" validate:"omitempty,gt=0"`
	Priority        int              `json:"priority"`
	ValidFrom       *time.Time       `json:"valid_from,omitempty"`
	ValidUntil      *time.Time       `json:"valid_until,omitempty"`
}

// DiscountCreate registers a redeemable code.
func DiscountCreate(repo discount.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		def := models.DiscountDefinition{
			Code:            strings.ToUpper(strings.TrimSpace(payload.Code)),
			DiscountType:    enums.DiscountType(payload.DiscountType),
			Value:           payload.Value,
			MaxAmount:       payload.MaxAmount,
			MinuteValue:     payload.MinuteValue,
			MinAmount:       payload.MinAmount,
			MinimumDuration: payload.MinimumDuration,
			Priority:        payload.Priority,
			ValidFrom:       payload.ValidFrom,
			ValidUntil:      payload.ValidUntil,
			IsActive:        true,
		}

		// Surface malformed definitions now rather than at redemption time.
		if _, err := discount.FromModel(def); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.Create(r.Context(), &def); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newDiscountResponse(def))
	}
}

// DiscountList returns every definition, highest priority first.
func DiscountList(repo discount.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defs, err := repo.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]discountResponse, 0, len(defs))
		for _, def := range defs {
			out = append(out, newDiscountResponse(def))
		}
		responses.WriteSuccess(w, out)
	}
}

// DiscountFindByCode lets terminals validate a code before quoting with it.
func DiscountFindByCode(resolver *discount.Resolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		def, err := resolver.FindByCode(r.Context(), routeParam(r, "code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, discountResponse{
			ID:              def.ID,
			Code:            def.Code,
			DiscountType:    string(def.Type),
			Value:           def.Value,
			MaxAmount:       def.MaxAmount,
			MinuteValue:     def.MinuteValue,
			MinAmount:       def.MinAmount,
			MinimumDuration: def.MinimumDuration,
			ValidFrom:       def.ValidFrom,
			ValidUntil:      def.ValidUntil,
			IsActive:        def.Active,
		})
	}
}

type discountResponse struct {
	ID              uuid.UUID        `json:"id"`
	Code            string           `json:"code"`
	DiscountType    string           `json:"discount_type"`
	Value           *decimal.Decimal `json:"value,omitempty"`
	MaxAmount       *decimal.Decimal `json:"max_amount,omitempty"`
	MinuteValue     *decimal.Decimal `json:"minute_value,omitempty"`
	MinAmount       *decimal.Decimal `json:"min_amount,omitempty"`
	MinimumDuration *int64           `json:"minimum_duration,omitempty"`
	Priority        int              `json:"priority"`
	ValidFrom       *time.Time       `json:"valid_from,omitempty"`
	ValidUntil      *time.Time       `json:"valid_until,omitempty"`
	IsActive        bool             `json:"is_active"`
}

func newDiscountResponse(def models.DiscountDefinition) discountResponse {
	return discountResponse{
		ID:              def.ID,
		Code:            def.Code,
		DiscountType:    string(def.DiscountType),
		Value:           def.Value,
		MaxAmount:       def.MaxAmount,
		MinuteValue:     def.MinuteValue,
		MinAmount:       def.MinAmount,
		MinimumDuration: def.MinimumDuration,
		Priority:        def.Priority,
		ValidFrom:       def.ValidFrom,
		ValidUntil:      def.ValidUntil,
		IsActive:        def.IsActive,
	}
}
