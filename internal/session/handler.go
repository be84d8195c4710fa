package session

import (
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/academy-portal/internal/transport"
	"github.com/frahmantamala/academy-portal/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		store:       store,
	}
}

// GetSession returns the active period, or 404 when none is defined.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	current := h.store.CurrentPeriod()
	if current == nil {
		h.WriteError(w, http.StatusNotFound, "no active period")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"session": current})
}

// DefineSession replaces the active period with the submitted one.
func (h *Handler) DefineSession(w http.ResponseWriter, r *http.Request) {
	var dto PeriodDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	period := dto.ToPeriod()
	if err := h.store.DefineSession(r.Context(), &period); err != nil {
		h.Logger.Error("failed to define session", "error", err, "period_id", period.ID)
		h.WriteAppError(w, err, "failed to define session")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"session": h.store.CurrentPeriod()})
}

// ClearSession removes the active period.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DefineSession(r.Context(), nil); err != nil {
		h.Logger.Error("failed to clear session", "error", err)
		h.WriteAppError(w, err, "failed to clear session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
