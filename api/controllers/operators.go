package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jmoris/stpark-backend/api/responses"
	"github.com/jmoris/stpark-backend/api/validators"
	"github.com/jmoris/stpark-backend/internal/operators"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/logger"
)

type createOperatorRequest struct {
	Name     string     `json:"name" validate:"required,min=2,max=120"`
	SectorID *uuid.UUID `json:"sector_id,omitempty" validate:"omitempty,uuid4"`
	Role     string     `json:"role,omitempty" validate:"omitempty,oneof=operator supervisor admin"`
	Pin      string     `json:"pin" validate:"required,min=4,max=12"`
}

// OperatorCreate registers a new operator with a hashed PIN.
func OperatorCreate(svc operators.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createOperatorRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		operator, err := svc.Create(r.Context(), operators.CreateOperatorInput{
			Name:     validators.SanitizeString(payload.Name, 120),
			SectorID: payload.SectorID,
			Role:     enums.OperatorRole(payload.Role),
			Pin:      payload.Pin,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOperatorResponse(operator))
	}
}

// OperatorList returns the active roster.
func OperatorList(svc operators.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roster, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]operatorResponse, 0, len(roster))
		for i := range roster {
			out = append(out, newOperatorResponse(&roster[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// OperatorDeactivate retires an operator; it does not touch open shifts.
func OperatorDeactivate(svc operators.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operatorID, err := pathUUID(r, "operatorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Deactivate(r.Context(), operatorID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := routeParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").
			WithDetails(map[string]any{"param": param})
	}
	return id, nil
}
