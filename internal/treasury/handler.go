package treasury

import (
	"net/http"
	"strconv"

	"github.com/frahmantamala/association-treasury/internal/transport"
	"github.com/frahmantamala/association-treasury/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	AvailableBalance(associationID int64) (*BalanceSnapshot, error)
	FinancialSummary(associationID int64, window string) (*FinancialSummary, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     service,
	}
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	associationID, ok := h.associationIDParam(w, r)
	if !ok {
		return
	}

	snapshot, err := h.Service.AvailableBalance(associationID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	associationID, ok := h.associationIDParam(w, r)
	if !ok {
		return
	}

	window := r.URL.Query().Get("window")
	if window == "" {
		window = WindowMonth
	}

	summary, err := h.Service.FinancialSummary(associationID, window)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) associationIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid association ID")
		return 0, false
	}
	return id, true
}
