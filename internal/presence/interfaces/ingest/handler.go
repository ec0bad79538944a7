// Package ingest accepts presence status changes over HTTP.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"presence-ledger/internal/eventing"
	"presence-ledger/internal/observability/metrics"
	presence "presence-ledger/internal/presence/domain"
)

// Publisher fans accepted events out to in-process subscribers.
type Publisher interface {
	Publish(ctx context.Context, logged eventing.PresenceLogged) error
}

// Handler handles status change ingestion from trusted adapters.
type Handler struct {
	sink   presence.EventSink
	bus    Publisher
	logger *log.Logger
	now    func() time.Time
}

// NewHandler constructs an ingest handler. The bus is optional.
func NewHandler(sink presence.EventSink, bus Publisher, logger *log.Logger) (*Handler, error) {
	if sink == nil {
		return nil, errors.New("ingest: nil sink")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{sink: sink, bus: bus, logger: logger, now: time.Now}, nil
}

// ServeHTTP ingests one status change.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("presence ingest: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("presence ingest: decode error: %v", err)
		metrics.IncIngestError("decode")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	event, err := req.toEvent(h.now())
	if err != nil {
		h.logger.Printf("presence ingest: invalid payload: %v", err)
		metrics.IncIngestError("payload")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	started := h.now()
	if err := h.sink.Append(r.Context(), event); err != nil {
		h.logger.Printf("presence ingest: append error: %v", err)
		metrics.ObserveIngest(eventing.SourceIngest, metrics.IngestResultError, h.now().Sub(started))
		http.Error(w, "append error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveIngest(eventing.SourceIngest, metrics.IngestResultSuccess, h.now().Sub(started))

	if h.bus != nil {
		logged := eventing.PresenceLogged{
			ScopeID:   event.ScopeID,
			SubjectID: event.SubjectID,
			Status:    string(event.Status),
			Manual:    event.Manual,
			At:        event.At,
			Source:    eventing.SourceIngest,
		}
		if err := h.bus.Publish(r.Context(), logged); err != nil {
			h.logger.Printf("presence ingest: publish error: %v", err)
		}
	}

	resp := map[string]any{
		"scope_id":   event.ScopeID,
		"subject_id": event.SubjectID,
		"status":     string(event.Status),
		"at":         event.At.UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}

type ingestRequest struct {
	ScopeID     string     `json:"scope_id"`
	SubjectID   string     `json:"subject_id"`
	DisplayName string     `json:"display_name"`
	Status      string     `json:"status"`
	Manual      bool       `json:"manual"`
	At          *time.Time `json:"at"`
}

func (r ingestRequest) toEvent(now time.Time) (presence.StatusEvent, error) {
	if r.ScopeID == "" || r.SubjectID == "" {
		return presence.StatusEvent{}, errors.New("missing scope_id/subject_id")
	}
	status, err := presence.ParseStatus(r.Status)
	if err != nil {
		return presence.StatusEvent{}, err
	}
	at := now
	if r.At != nil && !r.At.IsZero() {
		at = *r.At
	}
	return presence.StatusEvent{
		ScopeID:     r.ScopeID,
		SubjectID:   r.SubjectID,
		DisplayName: r.DisplayName,
		Status:      status,
		Manual:      r.Manual,
		At:          at,
	}, nil
}
