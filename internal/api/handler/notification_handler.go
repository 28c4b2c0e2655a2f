package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/dynaerp/notify-engine/internal/api/middleware"
	"github.com/dynaerp/notify-engine/internal/repository"
)

// NotificationHandler serves the employee-facing notification feed.
type NotificationHandler struct {
	repo   repository.NotificationRepository
	logger *zap.Logger
}

func NewNotificationHandler(repo repository.NotificationRepository, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, logger: logger}
}

// List handles GET /api/v1/notifications
//
// @Summary  List one employee's notifications, newest first
// @Tags     notifications
// @Produce  json
// @Param    company_id  query     string  true   "Company scope"
// @Param    emp_id      query     string  true   "Recipient employee ID"
// @Param    page        query     int     false  "Page number (default 1)"
// @Param    limit       query     int     false  "Items per page (default 20, max 100)"
// @Success  200         {object}  map[string]any
// @Failure  400         {object}  map[string]string
// @Router   /api/v1/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID := q.Get("company_id")
	empID := q.Get("emp_id")
	if companyID == "" || empID == "" {
		respondError(w, http.StatusBadRequest, "company_id and emp_id are required")
		return
	}

	page, limit := 1, 20
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	notifications, total, err := h.repo.ListByRecipient(r.Context(), companyID, empID, page, limit)
	if err != nil {
		h.logger.Warn("list notifications failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  notifications,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// MarkRead handles POST /api/v1/notifications/{id}/read
//
// The emp_id query parameter scopes the update so an employee can only
// acknowledge their own rows.
//
// @Summary  Mark a notification as read
// @Tags     notifications
// @Param    id      path   string  true  "Notification UUID"
// @Param    emp_id  query  string  true  "Recipient employee ID"
// @Success  204
// @Failure  400  {object}  map[string]string
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	empID := r.URL.Query().Get("emp_id")
	if empID == "" {
		respondError(w, http.StatusBadRequest, "emp_id is required")
		return
	}

	if err := h.repo.MarkRead(r.Context(), id, empID); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
