package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/ledger"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/scanner"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/storage"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/trigger"
)

const requestTimeout = 10 * time.Second

// Server exposes triggers, the alert ledger and sweep history over HTTP.
type Server struct {
	store    storage.Storage
	ledger   *ledger.Ledger
	triggers *trigger.Store
	sweeper  scanner.Sweeper
	mux      *http.ServeMux
	logger   *slog.Logger
	now      func() time.Time
}

// NewServer creates an API server.
func NewServer(store storage.Storage, l *ledger.Ledger, triggers *trigger.Store, sweeper scanner.Sweeper, logger *slog.Logger) *Server {
	s := &Server{
		store:    store,
		ledger:   l,
		triggers: triggers,
		sweeper:  sweeper,
		mux:      http.NewServeMux(),
		logger:   logger,
		now:      time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/entities", s.handleEntities)
	s.mux.HandleFunc("GET /api/v1/triggers", s.handleTriggers)
	s.mux.HandleFunc("POST /api/v1/triggers/{id}/dismiss", s.handleTriggerClose(model.TriggerDismissed))
	s.mux.HandleFunc("POST /api/v1/triggers/{id}/actioned", s.handleTriggerClose(model.TriggerActioned))
	s.mux.HandleFunc("GET /api/v1/alerts", s.handleAlerts)
	s.mux.HandleFunc("POST /api/v1/alerts/{id}/ack", s.handleAcknowledge)
	s.mux.HandleFunc("GET /api/v1/notifications", s.handleNotifications)
	s.mux.HandleFunc("GET /api/v1/sweeps", s.handleSweeps)
	s.mux.HandleFunc("POST /api/v1/sweeps", s.handleRunSweep)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	entities, err := s.store.ListMonitored(ctx)
	if err != nil {
		s.writeError(w, "list entities", err)
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := r.URL.Query()
	filter := model.TriggerFilter{
		Status:   model.TriggerStatus(q.Get("status")),
		Priority: model.Priority(q.Get("priority")),
		EntityID: q.Get("entity_id"),
		OpenOnly: q.Get("open") == "true",
	}

	triggers, err := s.triggers.List(ctx, filter)
	if err != nil {
		s.writeError(w, "list triggers", err)
		return
	}
	writeJSON(w, http.StatusOK, triggers)
}

func (s *Server) handleTriggerClose(to model.TriggerStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		id := r.PathValue("id")
		var err error
		if to == model.TriggerDismissed {
			err = s.triggers.Dismiss(ctx, id)
		} else {
			err = s.triggers.Actioned(ctx, id)
		}
		if err != nil {
			s.writeError(w, "close trigger", err)
			return
		}

		t, err := s.triggers.Get(ctx, id)
		if err != nil {
			s.writeError(w, "get trigger", err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := r.URL.Query()
	filter := model.AlertFilter{
		EntityID:       q.Get("entity_id"),
		AlertType:      model.Threshold(q.Get("alert_type")),
		SentTo:         q.Get("sent_to"),
		Unacknowledged: q.Get("unacknowledged") == "true",
	}

	entries, err := s.ledger.List(ctx, filter)
	if err != nil {
		s.writeError(w, "list alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := r.PathValue("id")
	if err := s.ledger.Acknowledge(ctx, id, s.now()); err != nil {
		s.writeError(w, "acknowledge alert", err)
		return
	}

	entry, err := s.ledger.Get(ctx, id)
	if err != nil {
		s.writeError(w, "get alert", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	notifications, err := s.store.ListNotifications(ctx, model.NotificationStatus(q.Get("status")), limit)
	if err != nil {
		s.writeError(w, "list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleSweeps(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sweeps, err := s.store.ListSweeps(ctx, limit)
	if err != nil {
		s.writeError(w, "list sweeps", err)
		return
	}
	writeJSON(w, http.StatusOK, sweeps)
}

// handleRunSweep runs a sweep on demand. It may overlap a scheduled sweep.
func (s *Server) handleRunSweep(w http.ResponseWriter, r *http.Request) {
	summary, err := s.sweeper.Sweep(r.Context(), s.now())
	if err != nil {
		s.writeError(w, "run sweep", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, trigger.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.logger.Error(op, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
