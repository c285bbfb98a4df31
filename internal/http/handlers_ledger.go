package http

import (
	"context"
	"net/http"

	"hesabdar/internal/core"
	applog "hesabdar/internal/log"
)

type createFunc func(ctx context.Context, r core.Record) (core.Record, error)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	s.createRecord(w, r, core.KindExpense, s.ledger.CreateExpense)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	s.createRecord(w, r, core.KindOtherIncome, s.ledger.CreateOtherIncome)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	s.createRecord(w, r, core.KindSubscription, s.ledger.CreateSubscription)
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request, kind core.RecordKind, create createFunc) {
	var req recordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	rec, err := req.record(tenantFrom(r.Context()), kind)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	saved, err := create(r.Context(), rec)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, record(saved))
}

// handleUpdateRecord replaces a record. The body has the same shape as on
// create; omitted fields are cleared.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	kind, id, err := recordPath(r)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	var req recordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	rec, err := req.record(tenantFrom(r.Context()), kind)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	rec.ID = id
	saved, err := s.ledger.UpdateRecord(r.Context(), rec)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, record(saved))
}

func (s *Server) handleCreateBank(w http.ResponseWriter, r *http.Request) {
	var req bankRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	saved, err := s.ledger.CreateBank(r.Context(), req.bank(tenantFrom(r.Context())))
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, bank(saved))
}

func (s *Server) handleUpdateBank(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	var req bankRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	b := req.bank(tenantFrom(r.Context()))
	b.ID = id
	saved, err := s.ledger.UpdateBank(r.Context(), b)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, bank(saved))
}

func (s *Server) handleDeleteBank(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteBank(r.Context(), tenantFrom(r.Context()), id); err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func recordPath(r *http.Request) (core.RecordKind, int64, error) {
	kind, err := core.ParseKind(r.PathValue("kind"))
	if err != nil {
		return "", 0, &fieldError{Field: "kind", Err: err}
	}
	id, err := pathID(r, "id")
	if err != nil {
		return "", 0, err
	}
	return kind, id, nil
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	kind, id, err := recordPath(r)
	if err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteRecord(r.Context(), tenantFrom(r.Context()), kind, id); err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
