package transport

import (
	"net/http"

	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ownerFrom reads the authenticated cart owner, answering 401 when absent
func ownerFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := middleware.GetUserID(r.Context())
	if !ok || owner == "" {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return owner, true
}

// uuidParam parses a UUID route parameter, answering 400 when malformed
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
