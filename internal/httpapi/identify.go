package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bitespeed/identity-reconciler/internal/domain"
	"github.com/bitespeed/identity-reconciler/internal/logging"
	"github.com/bitespeed/identity-reconciler/internal/reconcile"
	"github.com/bitespeed/identity-reconciler/internal/validate"
)

// identifyRequest mirrors the wire shape the teacher's handler decoded.
type identifyRequest struct {
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
}

type identifyResponse struct {
	Contact domain.ConsolidatedContact `json:"contact"`
}

// IdentifyHandler serves POST /identify: validate -> reconcile -> respond.
type IdentifyHandler struct {
	reconciler *reconcile.Reconciler
	log        logging.Logger
}

// NewIdentifyHandler builds a handler bound to r.
func NewIdentifyHandler(r *reconcile.Reconciler, log logging.Logger) *IdentifyHandler {
	return &IdentifyHandler{reconciler: r, log: log}
}

func (h *IdentifyHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var wire identifyRequest
	if err := json.NewDecoder(req.Body).Decode(&wire); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	normalized, err := validate.Normalize(validate.Input{Email: wire.Email, Phone: wire.PhoneNumber})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.reconciler.Reconcile(req.Context(), domain.Request{
		Email: normalized.Email,
		Phone: normalized.Phone,
	})
	if err != nil {
		h.log.WithField("request_id", requestIDFrom(req.Context())).Error("reconciliation failed", err)
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(identifyResponse{Contact: *result})
}

// writeDomainError maps a domain.Error's Kind onto an HTTP status, per
// SPEC_FULL.md's "Structured error responses" supplement to spec.md §7.
func writeDomainError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	switch de.Kind {
	case domain.KindInvalidPrecondition:
		writeError(w, http.StatusBadRequest, de.Msg)
	case domain.KindUniqueConflict, domain.KindSerialization:
		writeError(w, http.StatusConflict, "conflicting concurrent write, please retry")
	case domain.KindTimeout:
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	case domain.KindStoreUnavailable:
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	case domain.KindInvariantBroken:
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
