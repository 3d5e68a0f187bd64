package request

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
	CreateRequest(dto *CreateRequestDTO, requesterID int64) (*ExpenseRequest, error)
	GetRequest(requestID int64) (*ExpenseRequest, error)
	ListRequests(associationID int64, limit, offset int) ([]*ExpenseRequest, error)
	Decide(requestID, userID int64, dto *DecisionDTO) (*ExpenseRequest, error)
	Cancel(requestID, userID int64, dto *CancelDTO) (*ExpenseRequest, error)
	ConfirmPayment(requestID, actorID int64, dto *ConfirmPaymentDTO) (*ExpenseRequest, error)
	FailPayment(requestID, actorID int64, dto *FailPaymentDTO) (*ExpenseRequest, error)
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

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	actorID := internal.ActorIDFromContext(r.Context())
	if actorID == 0 {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateRequest: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.CreateRequest(&dto, actorID)
	if err != nil {
		h.Logger.Error("CreateRequest: service error", "error", err, "user_id", actorID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateRequest: request created",
		"request_id", req.ID,
		"user_id", actorID,
		"amount", req.AmountRequested,
		"status", req.Status)

	h.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestIDParam(w, r)
	if !ok {
		return
	}

	req, err := h.Service.GetRequest(requestID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	associationIDStr := r.URL.Query().Get("association_id")
	associationID, err := strconv.ParseInt(associationIDStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid association_id")
		return
	}

	limit := 20
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	requests, err := h.Service.ListRequests(associationID, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	actorID := internal.ActorIDFromContext(r.Context())
	if actorID == 0 {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requestID, ok := h.requestIDParam(w, r)
	if !ok {
		return
	}

	var dto DecisionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Decide: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.Decide(requestID, actorID, &dto)
	if err != nil {
		h.Logger.Error("Decide: service error", "error", err, "request_id", requestID, "user_id", actorID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("Decide: decision recorded",
		"request_id", requestID,
		"user_id", actorID,
		"decision", dto.Decision,
		"status", req.Status)

	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	actorID := internal.ActorIDFromContext(r.Context())
	if actorID == 0 {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requestID, ok := h.requestIDParam(w, r)
	if !ok {
		return
	}

	var dto CancelDTO
	if r.Body != nil {
		// body is optional, a bare cancel is allowed
		_ = json.NewDecoder(r.Body).Decode(&dto)
	}

	req, err := h.Service.Cancel(requestID, actorID, &dto)
	if err != nil {
		h.Logger.Error("Cancel: service error", "error", err, "request_id", requestID, "user_id", actorID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	actorID := internal.ActorIDFromContext(r.Context())
	if actorID == 0 {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requestID, ok := h.requestIDParam(w, r)
	if !ok {
		return
	}

	var dto ConfirmPaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("ConfirmPayment: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.ConfirmPayment(requestID, actorID, &dto)
	if err != nil {
		h.Logger.Error("ConfirmPayment: service error", "error", err, "request_id", requestID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("ConfirmPayment: payment recorded",
		"request_id", requestID,
		"user_id", actorID,
		"amount", req.EffectiveAmount())

	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) FailPayment(w http.ResponseWriter, r *http.Request) {
	actorID := internal.ActorIDFromContext(r.Context())
	if actorID == 0 {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requestID, ok := h.requestIDParam(w, r)
	if !ok {
		return
	}

	var dto FailPaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("FailPayment: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.FailPayment(requestID, actorID, &dto)
	if err != nil {
		h.Logger.Error("FailPayment: service error", "error", err, "request_id", requestID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
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
