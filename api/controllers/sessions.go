package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/api/responses"
	"github.com/jmoris/stpark-backend/api/validators"
	"github.com/jmoris/stpark-backend/internal/quote"
	"github.com/jmoris/stpark-backend/internal/sessions"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/logger"
)

const maxHistoryLimit = 100

type checkInRequest struct {
	Plate    string     `json:"plate" validate:"required,min=4,max=12"`
	SectorID uuid.UUID  `json:"sector_id" validate:"required,uuid4"`
	StreetID *uuid.UUID `json:"street_id,omitempty" validate:"omitempty,uuid4"`
	DeviceID *string    `json:"device_id,omitempty" validate:"omitempty,max=64"`
}

// SessionCheckIn opens a parking session for a plate.
func SessionCheckIn(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload checkInRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CheckIn(r.Context(), sessions.CheckInInput{
			Plate:      payload.Plate,
			SectorID:   payload.SectorID,
			StreetID:   payload.StreetID,
			OperatorID: operatorID,
			DeviceID:   payload.DeviceID,
			Actor:      actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newSessionResponse(session))
	}
}

// SessionDetail fetches a session by id.
func SessionDetail(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := pathUUID(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.GetByID(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// SessionActiveByPlate resolves the plate's running session.
func SessionActiveByPlate(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.FindActiveByPlate(r.Context(), routeParam(r, "plate"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// SessionHistory lists the plate's most recent sessions.
func SessionHistory(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, maxHistoryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.ListByPlate(r.Context(), routeParam(r, "plate"), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]sessionResponse, 0, len(history))
		for i := range history {
			out = append(out, newSessionResponse(&history[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// SessionQuote prices a session without settling it.
func SessionQuote(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := pathUUID(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := sessions.QuoteInput{
			SessionID:    sessionID,
			DiscountCode: r.URL.Query().Get("discount_code"),
		}
		if raw := r.URL.Query().Get("at"); raw != "" {
			at, parseErr := time.Parse(time.RFC3339, raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "at must be RFC3339"))
				return
			}
			input.At = &at
		}

		q, err := svc.Quote(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, q)
	}
}

type checkoutRequest struct {
	Method       string           `json:"method" validate:"required,oneof=cash card transfer webpay"`
	Tendered     *decimal.Decimal `json:"tendered,omitempty"`
	DiscountCode string           `json:"discount_code,omitempty" validate:"omitempty,max=32"`
}

type checkoutResponse struct {
	Session sessionResponse  `json:"session"`
	Sale    *saleResponse    `json:"sale,omitempty"`
	Payment *paymentResponse `json:"payment,omitempty"`
	Quote   quote.Quote      `json:"quote"`
	Change  *decimal.Decimal `json:"change,omitempty"`
}

// SessionCheckout settles an active session against the operator's drawer.
func SessionCheckout(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
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
		sessionID, err := pathUUID(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), sessions.CheckoutInput{
			SessionID:    sessionID,
			Method:       enums.PaymentMethod(payload.Method),
			Tendered:     payload.Tendered,
			DiscountCode: payload.DiscountCode,
			OperatorID:   operatorID,
			Actor:        actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCheckoutResponse(result))
	}
}

type forceCheckoutRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=240"`
}

type forceCheckoutResponse struct {
	Session sessionResponse `json:"session"`
	Debt    *debtResponse   `json:"debt,omitempty"`
	Quote   quote.Quote     `json:"quote"`
}

// SessionForceCheckout closes a session unpaid and books the debt.
func SessionForceCheckout(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID, err := pathUUID(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload forceCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ForceCheckout(r.Context(), sessions.ForceCheckoutInput{
			SessionID: sessionID,
			Reason:    validators.SanitizeString(payload.Reason, 240),
			Actor:     actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := forceCheckoutResponse{
			Session: newSessionResponse(result.Session),
			Quote:   result.Quote,
		}
		if result.Debt != nil {
			debt := newDebtResponse(result.Debt)
			out.Debt = &debt
		}
		responses.WriteSuccess(w, out)
	}
}

type cancelSessionRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=240"`
}

// SessionCancel voids an active session without billing.
func SessionCancel(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sessionID, err := pathUUID(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Cancel(r.Context(), sessions.CancelInput{
			SessionID: sessionID,
			Reason:    validators.SanitizeString(payload.Reason, 240),
			Actor:     actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

type sessionResponse struct {
	ID             uuid.UUID        `json:"id"`
	Plate          string           `json:"plate"`
	SectorID       uuid.UUID        `json:"sector_id"`
	StreetID       *uuid.UUID       `json:"street_id,omitempty"`
	OperatorID     uuid.UUID        `json:"operator_id"`
	DeviceID       *string          `json:"device_id,omitempty"`
	Status         string           `json:"status"`
	StartedAt      time.Time        `json:"started_at"`
	EndedAt        *time.Time       `json:"ended_at,omitempty"`
	SecondsTotal   *int64           `json:"seconds_total,omitempty"`
	GrossAmount    *decimal.Decimal `json:"gross_amount,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	NetAmount      *decimal.Decimal `json:"net_amount,omitempty"`
	DiscountID     *uuid.UUID       `json:"discount_id,omitempty"`
	PaymentMethod  *string          `json:"payment_method,omitempty"`
}

func newSessionResponse(session *models.ParkingSession) sessionResponse {
	if session == nil {
		return sessionResponse{}
	}
	out := sessionResponse{
		ID:             session.ID,
		Plate:          session.Plate,
		SectorID:       session.SectorID,
		StreetID:       session.StreetID,
		OperatorID:     session.OperatorID,
		DeviceID:       session.DeviceID,
		Status:         string(session.Status),
		StartedAt:      session.StartedAt,
		EndedAt:        session.EndedAt,
		SecondsTotal:   session.SecondsTotal,
		GrossAmount:    session.GrossAmount,
		DiscountAmount: session.DiscountAmount,
		NetAmount:      session.NetAmount,
		DiscountID:     session.DiscountID,
	}
	if session.PaymentMethod != nil {
		method := string(*session.PaymentMethod)
		out.PaymentMethod = &method
	}
	return out
}

type saleResponse struct {
	ID            uuid.UUID       `json:"id"`
	SessionID     uuid.UUID       `json:"session_id"`
	ShiftID       *uuid.UUID      `json:"shift_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	SoldAt        time.Time       `json:"sold_at"`
}

type paymentResponse struct {
	ID         uuid.UUID        `json:"id"`
	SaleID     uuid.UUID        `json:"sale_id"`
	Method     string           `json:"method"`
	Amount     decimal.Decimal  `json:"amount"`
	Tendered   *decimal.Decimal `json:"tendered,omitempty"`
	Change     *decimal.Decimal `json:"change,omitempty"`
	ReceivedAt time.Time        `json:"received_at"`
}

func newCheckoutResponse(result *sessions.CheckoutResult) checkoutResponse {
	if result == nil {
		return checkoutResponse{}
	}
	out := checkoutResponse{
		Session: newSessionResponse(result.Session),
		Quote:   result.Quote,
		Change:  result.Change,
	}
	if result.Sale != nil {
		out.Sale = &saleResponse{
			ID:            result.Sale.ID,
			SessionID:     result.Sale.SessionID,
			ShiftID:       result.Sale.ShiftID,
			Amount:        result.Sale.Amount,
			PaymentMethod: string(result.Sale.PaymentMethod),
			SoldAt:        result.Sale.SoldAt,
		}
	}
	if result.Payment != nil {
		out.Payment = &paymentResponse{
			ID:         result.Payment.ID,
			SaleID:     result.Payment.SaleID,
			Method:     string(result.Payment.Method),
			Amount:     result.Payment.Amount,
			Tendered:   result.Payment.Tendered,
			Change:     result.Payment.Change,
			ReceivedAt: result.Payment.ReceivedAt,
		}
	}
	return out
}
