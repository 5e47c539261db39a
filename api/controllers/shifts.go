package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/api/responses"
	"github.com/jmoris/stpark-backend/api/validators"
	"github.com/jmoris/stpark-backend/internal/shifts"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/logger"
)

type openShiftRequest struct {
	SectorID     *uuid.UUID      `json:"sector_id,omitempty" validate:"omitempty,uuid4"`
	DeviceID     *string         `json:"device_id,omitempty" validate:"omitempty,max=64"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

// ShiftOpen starts a cash drawer for the calling operator.
func ShiftOpen(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operatorID, err := operatorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload openShiftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shift, err := svc.Open(r.Context(), shifts.OpenShiftInput{
			OperatorID:   operatorID,
			SectorID:     payload.SectorID,
			DeviceID:     payload.DeviceID,
			OpeningFloat: payload.OpeningFloat,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newShiftResponse(shift))
	}
}

// ShiftDetail fetches a shift by id.
func ShiftDetail(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID, err := pathUUID(r, "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shift, err := svc.GetByID(r.Context(), shiftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newShiftResponse(shift))
	}
}

// ShiftCurrent resolves the calling operator's open drawer.
func ShiftCurrent(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operatorID, err := operatorIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shift, err := svc.OpenShiftFor(r.Context(), operatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newShiftResponse(shift))
	}
}

type movementRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" validate:"required,min=3,max=240"`
}

// ShiftDeposit adds cash to the drawer.
func ShiftDeposit(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID, err := pathUUID(r, "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload movementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		op, err := svc.Deposit(r.Context(), shifts.MovementInput{
			ShiftID: shiftID,
			Amount:  payload.Amount,
			Reason:  validators.SanitizeString(payload.Reason, 240),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newShiftOperationResponse(op))
	}
}

type withdrawRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason" validate:"required,min=3,max=240"`
	ApprovedBy  *uuid.UUID      `json:"approved_by,omitempty" validate:"omitempty,uuid4"`
	ApproverPin string          `json:"approver_pin,omitempty" validate:"omitempty,min=4,max=12"`
}

// ShiftWithdraw removes cash from the drawer, optionally under approval.
func ShiftWithdraw(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID, err := pathUUID(r, "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload withdrawRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		op, err := svc.Withdraw(r.Context(), shifts.WithdrawInput{
			ShiftID:     shiftID,
			Amount:      payload.Amount,
			Reason:      validators.SanitizeString(payload.Reason, 240),
			ApprovedBy:  payload.ApprovedBy,
			ApproverPin: payload.ApproverPin,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newShiftOperationResponse(op))
	}
}

// ShiftReconcile replays the drawer ledger into expected totals.
func ShiftReconcile(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID, err := pathUUID(r, "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		totals, err := svc.Reconcile(r.Context(), shiftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, totals)
	}
}

type closeShiftRequest struct {
	DeclaredCash decimal.Decimal `json:"declared_cash"`
}

type closeShiftResponse struct {
	Shift  shiftResponse  `json:"shift"`
	Totals *shifts.Totals `json:"totals"`
}

// ShiftClose settles the drawer against the declared cash count.
func ShiftClose(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID, err := pathUUID(r, "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload closeShiftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shift, totals, err := svc.Close(r.Context(), shifts.CloseShiftInput{
			ShiftID:      shiftID,
			DeclaredCash: payload.DeclaredCash,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, closeShiftResponse{
			Shift:  newShiftResponse(shift),
			Totals: totals,
		})
	}
}

// ShiftOperations lists the drawer ledger in order.
func ShiftOperations(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID, err := pathUUID(r, "shiftId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ops, err := svc.ListOperations(r.Context(), shiftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]shiftOperationResponse, 0, len(ops))
		for i := range ops {
			out = append(out, newShiftOperationResponse(&ops[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type shiftResponse struct {
	ID                  uuid.UUID        `json:"id"`
	OperatorID          uuid.UUID        `json:"operator_id"`
	SectorID            *uuid.UUID       `json:"sector_id,omitempty"`
	DeviceID            *string          `json:"device_id,omitempty"`
	Status              string           `json:"status"`
	OpenedAt            time.Time        `json:"opened_at"`
	ClosedAt            *time.Time       `json:"closed_at,omitempty"`
	OpeningFloat        decimal.Decimal  `json:"opening_float"`
	ClosingDeclaredCash *decimal.Decimal `json:"closing_declared_cash,omitempty"`
	CashOverShort       *decimal.Decimal `json:"cash_over_short,omitempty"`
}

func newShiftResponse(shift *models.Shift) shiftResponse {
	if shift == nil {
		return shiftResponse{}
	}
	return shiftResponse{
		ID:                  shift.ID,
		OperatorID:          shift.OperatorID,
		SectorID:            shift.SectorID,
		DeviceID:            shift.DeviceID,
		Status:              string(shift.Status),
		OpenedAt:            shift.OpenedAt,
		ClosedAt:            shift.ClosedAt,
		OpeningFloat:        shift.OpeningFloat,
		ClosingDeclaredCash: shift.ClosingDeclaredCash,
		CashOverShort:       shift.CashOverShort,
	}
}

type shiftOperationResponse struct {
	ID          uuid.UUID        `json:"id"`
	ShiftID     uuid.UUID        `json:"shift_id"`
	Kind        string           `json:"kind"`
	Method      *string          `json:"method,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	At          time.Time        `json:"at"`
	ReferenceID *uuid.UUID       `json:"reference_id,omitempty"`
	Reason      *string          `json:"reason,omitempty"`
	ApprovedBy  *uuid.UUID       `json:"approved_by,omitempty"`
}

func newShiftOperationResponse(op *models.ShiftOperation) shiftOperationResponse {
	if op == nil {
		return shiftOperationResponse{}
	}
	out := shiftOperationResponse{
		ID:          op.ID,
		ShiftID:     op.ShiftID,
		Kind:        string(op.Kind),
		Amount:      op.Amount,
		At:          op.At,
		ReferenceID: op.ReferenceID,
		Reason:      op.Reason,
		ApprovedBy:  op.ApprovedBy,
	}
	if op.Method != nil {
		method := string(*op.Method)
		out.Method = &method
	}
	return out
}
