package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/api/responses"
	"github.com/jmoris/stpark-backend/api/validators"
	"github.com/jmoris/stpark-backend/internal/debts"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/logger"
)

type createDebtRequest struct {
	Plate           string          `json:"plate" validate:"required,min=4,max=12"`
	Origin          string          `json:"origin" validate:"required,oneof=session manual fine"`
	PrincipalAmount decimal.Decimal `json:"principal_amount" validate:"required"`
	SessionID       *uuid.UUID      `json:"session_id,omitempty" validate:"omitempty,uuid4"`
}

// DebtCreate books a manual obligation against a plate.
func DebtCreate(svc debts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createDebtRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		debt, err := svc.Create(r.Context(), debts.CreateDebtInput{
			Plate:           payload.Plate,
			Origin:          enums.DebtOrigin(payload.Origin),
			PrincipalAmount: payload.PrincipalAmount,
			SessionID:       payload.SessionID,
			Actor:           actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newDebtResponse(debt))
	}
}

// DebtList returns a plate's debts, optionally filtered by status.
func DebtList(svc debts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plate := strings.TrimSpace(r.URL.Query().Get("plate"))
		if plate == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "plate query parameter required"))
			return
		}

		var status *enums.DebtStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			candidate := enums.DebtStatus(raw)
			if !candidate.IsValid() {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "unknown debt status").
						WithDetails(map[string]any{"status": raw}))
				return
			}
			status = &candidate
		}

		list, err := svc.ListByPlate(r.Context(), plate, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]debtResponse, 0, len(list))
		for i := range list {
			out = append(out, newDebtResponse(&list[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// DebtDetail fetches a debt by id.
func DebtDetail(svc debts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		debtID, err := pathUUID(r, "debtId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		debt, err := svc.GetByID(r.Context(), debtID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newDebtResponse(debt))
	}
}

type settleDebtRequest struct {
	Method string `json:"method" validate:"required,oneof=cash card transfer webpay"`
}

// DebtSettle collects payment for a pending debt. Cash lands in the calling
// operator's open drawer.
func DebtSettle(svc debts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operatorID, err := operatorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		debtID, err := pathUUID(r, "debtId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload settleDebtRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		debt, err := svc.Settle(r.Context(), debts.SettleDebtInput{
			DebtID:     debtID,
			Method:     enums.PaymentMethod(payload.Method),
			OperatorID: operatorID,
			Actor:      actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newDebtResponse(debt))
	}
}

// DebtCancel voids a pending debt.
func DebtCancel(svc debts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		debtID, err := pathUUID(r, "debtId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		debt, err := svc.Cancel(r.Context(), debtID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newDebtResponse(debt))
	}
}

type debtResponse struct {
	ID              uuid.UUID       `json:"id"`
	Plate           string          `json:"plate"`
	Origin          string          `json:"origin"`
	PrincipalAmount decimal.Decimal `json:"principal_amount"`
	Status          string          `json:"status"`
	SessionID       *uuid.UUID      `json:"session_id,omitempty"`
	SettledAt       *time.Time      `json:"settled_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func newDebtResponse(debt *models.Debt) debtResponse {
	if debt == nil {
		return debtResponse{}
	}
	return debtResponse{
		ID:              debt.ID,
		Plate:           debt.Plate,
		Origin:          string(debt.Origin),
		PrincipalAmount: debt.PrincipalAmount,
		Status:          string(debt.Status),
		SessionID:       debt.SessionID,
		SettledAt:       debt.SettledAt,
		CreatedAt:       debt.CreatedAt,
	}
}
