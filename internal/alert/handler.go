package alert

import (
	"net/http"
	"strconv"

	"github.com/frahmantamala/association-treasury/internal/transport"
	"github.com/frahmantamala/association-treasury/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetAlerts(associationID int64) ([]Alert, error)
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

func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	associationID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid association ID")
		return
	}

	alerts, err := h.Service.GetAlerts(associationID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"association_id": associationID,
		"alerts":         alerts,
	})
}
