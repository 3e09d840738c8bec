package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/paycore/internal/api/httpx"
	"github.com/baharkarakas/paycore/internal/events"
	"github.com/baharkarakas/paycore/internal/models"
	"github.com/baharkarakas/paycore/internal/services"
)

type EventsHandler struct {
	Ledger    *services.LedgerService
	Hub       *events.Hub
	Heartbeat time.Duration
}

func NewEventsHandler(ledger *services.LedgerService, hub *events.Hub) *EventsHandler {
	return &EventsHandler{Ledger: ledger, Hub: hub, Heartbeat: 15 * time.Second}
}

// Stream sends the transaction's current state, then every change, as
// Server-Sent Events. The stream ends once the transaction is terminal.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported", nil)
		return
	}
	id := chi.URLParam(r, "id")

	// subscribe first so a change between the read and the subscription is not lost
	updates, cancel := h.Hub.Subscribe(id)
	defer cancel()

	tx, err := h.Ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, tx); err != nil {
		return
	}
	flusher.Flush()
	if tx.Status.Terminal() {
		return
	}

	ticker := time.NewTicker(h.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case next, open := <-updates:
			if !open {
				return
			}
			if err := writeEvent(w, next); err != nil {
				return
			}
			flusher.Flush()
			if next.Status.Terminal() {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, tx models.Transaction) error {
	b, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: transaction\nid: %s\ndata: %s\n\n", tx.Status, b)
	return err
}
