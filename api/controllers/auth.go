package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jmoris/stpark-backend/api/responses"
	"github.com/jmoris/stpark-backend/api/validators"
	"github.com/jmoris/stpark-backend/internal/operators"
	pkgAuth "github.com/jmoris/stpark-backend/pkg/auth"
	"github.com/jmoris/stpark-backend/pkg/clock"
	"github.com/jmoris/stpark-backend/pkg/config"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/logger"
)

type loginRequest struct {
	OperatorID uuid.UUID `json:"operator_id" validate:"required,uuid4"`
	Pin        string    `json:"pin" validate:"required,min=4,max=12"`
	DeviceID   *string   `json:"device_id,omitempty" validate:"omitempty,max=64"`
}

type loginResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int64            `json:"expires_in"`
	Operator    operatorResponse `json:"operator"`
}

// AuthLogin exchanges an operator id plus PIN for a signed access token.
func AuthLogin(svc operators.Service, jwtCfg config.JWTConfig, clk clock.Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "operator service unavailable"))
			return
		}

		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.VerifyPin(r.Context(), payload.OperatorID, payload.Pin); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		operator, err := svc.GetByID(r.Context(), payload.OperatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := pkgAuth.MintAccessToken(jwtCfg, clk.Now(), pkgAuth.AccessTokenPayload{
			OperatorID: operator.ID,
			Role:       operator.Role,
			SectorID:   operator.SectorID,
			DeviceID:   payload.DeviceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token"))
			return
		}

		responses.WriteSuccess(w, loginResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(jwtCfg.Expiration().Seconds()),
			Operator:    newOperatorResponse(operator),
		})
	}
}

type operatorResponse struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Role     string     `json:"role"`
	SectorID *uuid.UUID `json:"sector_id,omitempty"`
	IsActive bool       `json:"is_active"`
}

func newOperatorResponse(operator *models.Operator) operatorResponse {
	if operator == nil {
		return operatorResponse{}
	}
	return operatorResponse{
		ID:       operator.ID,
		Name:     operator.Name,
		Role:     string(operator.Role),
		SectorID: operator.SectorID,
		IsActive: operator.IsActive,
	}
}
