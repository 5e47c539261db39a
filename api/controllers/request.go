package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jmoris/stpark-backend/api/middleware"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/outbox"
)

func routeParam(r *http.Request, param string) string {
	return chi.URLParam(r, param)
}

// operatorIDFromRequest resolves the authenticated operator seeded by the
// auth middleware.
func operatorIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.OperatorIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing operator identity")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid operator identity")
	}
	return id, nil
}

func actorFromRequest(r *http.Request) (*outbox.ActorRef, error) {
	operatorID, err := operatorIDFromRequest(r)
	if err != nil {
		return nil, err
	}
	actor := &outbox.ActorRef{OperatorID: operatorID}
	if device := middleware.DeviceIDFromContext(r.Context()); device != "" {
		actor.DeviceID = &device
	}
	return actor, nil
}
