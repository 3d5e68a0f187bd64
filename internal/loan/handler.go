package loan

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/frahmantamala/association-treasury/internal"
	"github.com/frahmantamala/association-treasury/internal/transport"
	"github.com/frahmantamala/association-treasury/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	RecordRepayment(requestID, actorID int64, dto *RecordRepaymentDTO) (*Repayment, error)
	ScheduleInstallment(requestID, actorID int64, dto *ScheduleInstallmentDTO) (*Repayment, error)
	Schedule(requestID int64) (*Schedule, error)
	Progress(requestID int64) (*Progress, error)
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

// RecordRepayment validates a received repayment against the loan. When the
// payload names a scheduled installment number, that pending row is validated
// in place.
func (h *Handler) RecordRepayment(w http.ResponseWriter, r *http.Request) {
	actorID := internal.ActorIDFromContext(r.Context())
	if actorID == 0 {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requestID, ok := h.requestIDParam(w, r)
	if !ok {
		return
	}

	var dto RecordRepaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("RecordRepayment: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	repayment, err := h.Service.RecordRepayment(requestID, actorID, &dto)
	if err != nil {
		h.Logger.Error("RecordRepayment: service error", "error", err, "request_id", requestID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("RecordRepayment: repayment validated",
		"request_id", requestID,
		"repayment_id", repayment.ID,
		"amount", repayment.Amount)

	h.WriteJSON(w, http.StatusCreated, repayment)
}

func (h *Handler) ScheduleInstallment(w http.ResponseWriter, r *http.Request) {
	actorID := internal.ActorIDFromContext(r.Context())
	if actorID == 0 {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requestID, ok := h.requestIDParam(w, r)
	if !ok {
		return
	}

	var dto ScheduleInstallmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("ScheduleInstallment: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	installment, err := h.Service.ScheduleInstallment(requestID, actorID, &dto)
	if err != nil {
		h.Logger.Error("ScheduleInstallment: service error", "error", err, "request_id", requestID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, installment)
}

// GetSchedule returns all repayments for a loan with the progress summary.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestIDParam(w, r)
	if !ok {
		return
	}

	schedule, err := h.Service.Schedule(requestID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, schedule)
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestIDParam(w, r)
	if !ok {
		return
	}

	progress, err := h.Service.Progress(requestID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, progress)
}

func (h *Handler) requestIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request ID")
		return 0, false
	}
	return id, true
}
