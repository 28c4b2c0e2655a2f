package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/dynaerp/notify-engine/internal/api/middleware"
	"github.com/dynaerp/notify-engine/internal/domain"
	"github.com/dynaerp/notify-engine/internal/engine"
)

// TransactionEvent is the wire form of one committed transaction write as
// posted by the ERP write path. Snapshot carries the row after the write;
// Previous carries the row before an update and is absent otherwise.
type TransactionEvent struct {
	Table     string     `json:"table"`
	RecordID  string     `json:"record_id"`
	CompanyID string     `json:"company_id"`
	Action    string     `json:"action"`
	ChangedBy string     `json:"changed_by"`
	Snapshot  domain.Row `json:"snapshot,omitempty"`
	Previous  domain.Row `json:"previous,omitempty"`
}

// EventHandler accepts transaction write events and hands them to the engine.
type EventHandler struct {
	eng    *engine.Engine
	logger *zap.Logger
}

func NewEventHandler(eng *engine.Engine, logger *zap.Logger) *EventHandler {
	return &EventHandler{eng: eng, logger: logger}
}

// Ingest handles POST /internal/v1/events
//
// Always responds 202 once the body parses: fanout is asynchronous and must
// never fail the ERP save that triggered it. Invalid or unqueueable events
// are dropped inside the engine and surface only through metrics.
//
// @Summary  Ingest a transaction write event
// @Tags     events
// @Accept   json
// @Success  202
// @Failure  400  {object}  map[string]string
// @Router   /internal/v1/events [post]
func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var ev TransactionEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h.logger.Debug("event received",
		zap.String("table", ev.Table),
		zap.String("record_id", ev.RecordID),
		zap.String("action", ev.Action),
		zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
	)

	h.eng.Enqueue(ev.Table, ev.RecordID, ev.CompanyID, domain.Action(ev.Action),
		ev.ChangedBy, ev.Snapshot, ev.Previous)

	w.WriteHeader(http.StatusAccepted)
}
