package controllers

import (
	"net/http"

	"github.com/angelmondragon/stockroom-backend/api/middleware"
	"github.com/angelmondragon/stockroom-backend/api/responses"
	pkgerrors "github.com/angelmondragon/stockroom-backend/pkg/errors"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
	"github.com/google/uuid"
)

// callerIdentity writes a 401 and returns false when Auth did not seed a tenant.
func callerIdentity(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (middleware.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing"))
		return middleware.Identity{}, false
	}
	return id, true
}

func userRef(id middleware.Identity) *uuid.UUID {
	if id.UserID == uuid.Nil {
		return nil
	}
	userID := id.UserID
	return &userID
}
