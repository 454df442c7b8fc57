package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/bridge"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/events"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/journal"
	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/script"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	inFlight, err := s.commands.InFlight(r.Context())
	if err != nil {
		s.logger.Error("failed to count in-flight commands", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to count in-flight commands")
		return
	}

	resp := HealthzResponse{
		Status:           "ok",
		UptimeSeconds:    int64(time.Since(s.startedAt).Seconds()),
		CommandsInFlight: inFlight,
		OperationsLoaded: len(s.ops.All()),
		BridgeDir:        s.runner.Dir(),
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleExecute handles POST /execute: run a raw script verbatim.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		s.writeError(w, http.StatusBadRequest, "script is empty")
		return
	}

	s.runScript(w, r, "execute", req.Script)
}

// handleRunOperation handles POST /op/{name}: render a named operation with
// the supplied arguments and run it.
func (s *Server) handleRunOperation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	op, ok := s.ops.Get(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "operation not found")
		return
	}

	// The body is optional; chunked requests report ContentLength -1, so
	// only a clean EOF counts as "no body".
	var req OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rendered, err := op.Render(req.Args)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.runScript(w, r, name, rendered)
}

// runScript journals the exchange, publishes lifecycle events, and maps
// dispatcher errors to HTTP statuses.
func (s *Server) runScript(w http.ResponseWriter, r *http.Request, operation, scriptText string) {
	ctx := r.Context()
	id := uuid.NewString()

	if err := s.commands.Begin(ctx, id, operation, scriptText); err != nil {
		s.logger.Error("failed to journal command", "command_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to journal command")
		return
	}
	s.hub.PublishCommand(events.TypeCommandDispatched, events.CommandEvent{
		CommandID: id,
		Operation: operation,
	})

	res, err := s.runner.RunWithID(ctx, id, scriptText)
	if err != nil {
		status := journal.StatusFailed
		eventType := events.TypeCommandFailed
		httpStatus := http.StatusBadGateway
		switch {
		case errors.Is(err, bridge.ErrTimeout):
			status = journal.StatusTimedOut
			eventType = events.TypeCommandTimedOut
			httpStatus = http.StatusGatewayTimeout
		case errors.Is(err, bridge.ErrNotInitialized):
			httpStatus = http.StatusServiceUnavailable
		}

		msg := err.Error()
		if jerr := s.commands.Complete(ctx, id, status, &msg, res.Elapsed); jerr != nil {
			s.logger.Error("failed to journal command outcome", "command_id", id, "error", jerr)
		}
		s.hub.PublishCommand(eventType, events.CommandEvent{
			CommandID:  id,
			Operation:  operation,
			DurationMS: res.Elapsed.Milliseconds(),
			Error:      msg,
		})
		s.writeError(w, httpStatus, msg)
		return
	}

	if jerr := s.commands.Complete(ctx, id, journal.StatusSucceeded, nil, res.Elapsed); jerr != nil {
		s.logger.Error("failed to journal command outcome", "command_id", id, "error", jerr)
	}
	s.hub.PublishCommand(events.TypeCommandSucceeded, events.CommandEvent{
		CommandID:  id,
		Operation:  operation,
		DurationMS: res.Elapsed.Milliseconds(),
	})

	respondJSON(w, http.StatusOK, CommandResponse{
		CommandID:  id,
		Status:     string(journal.StatusSucceeded),
		Result:     res.Payload,
		DurationMS: res.Elapsed.Milliseconds(),
	})
}

// handleListOperations handles GET /op.
func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	ops := s.ops.All()
	resp := OperationListResponse{Operations: make([]OperationSummary, 0, len(ops))}
	for _, op := range ops {
		resp.Operations = append(resp.Operations, summarizeOperation(op))
	}
	respondJSON(w, http.StatusOK, resp)
}

func summarizeOperation(op script.Operation) OperationSummary {
	summary := OperationSummary{
		Name:        op.Name,
		Description: op.Description,
		Params:      make([]OperationParam, 0, len(op.Params)),
	}
	for _, p := range op.Params {
		summary.Params = append(summary.Params, OperationParam{
			Name:     p.Name,
			Type:     string(p.Type),
			Required: p.Required,
		})
	}
	return summary
}

// handleListCommands handles GET /commands?limit=N.
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.commands.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list commands", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list commands")
		return
	}

	resp := CommandListResponse{Commands: make([]CommandEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Commands = append(resp.Commands, commandEntryFrom(e))
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleGetCommand handles GET /commands/{commandID}.
func (s *Server) handleGetCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "commandID")
	entry, err := s.commands.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "command not found")
			return
		}
		s.logger.Error("failed to load command", "command_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load command")
		return
	}
	respondJSON(w, http.StatusOK, commandEntryFrom(entry))
}

func commandEntryFrom(e *journal.Entry) CommandEntry {
	return CommandEntry{
		CommandID:   e.ID,
		Operation:   e.Operation,
		ScriptHash:  e.ScriptHash,
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
		CompletedAt: e.CompletedAt,
		DurationMS:  e.DurationMS,
		LastError:   e.LastError,
	}
}

// respondJSON is a helper to write JSON responses.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
