package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/randalmurphal/triage/internal/runner"
	"github.com/randalmurphal/triage/internal/workflows"
	"github.com/randalmurphal/triage/pkg/triage"
	"github.com/randalmurphal/triage/pkg/triage/classifier"
	"github.com/randalmurphal/triage/pkg/triage/journal"
	"github.com/randalmurphal/triage/pkg/triage/llm"
)

// errMissingQuery is answered with 400.
var errMissingQuery = errors.New("query parameter is required")

// runResponse is the JSON body of /graph/{name}/run.
type runResponse struct {
	RunID    string         `json:"run_id"`
	Solution string         `json:"solution"`
	Path     []string       `json:"path"`
	State    map[string]any `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
	RunID string `json:"run_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGraphChat answers GET /graph/{name}/chat?query= with the solution text.
func (s *Server) handleGraphChat(w http.ResponseWriter, r *http.Request) {
	s.serveText(w, r, chi.URLParam(r, "name"))
}

// handlePlaces answers GET /graph/recommendedPlaces/places?query=.
func (s *Server) handlePlaces(w http.ResponseWriter, r *http.Request) {
	s.serveText(w, r, workflows.RecommendedPlaces)
}

func (s *Server) serveText(w http.ResponseWriter, r *http.Request, name string) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.writeError(w, errMissingQuery, "")
		return
	}

	out, err := s.runner.Run(r.Context(), name, query)
	s.metrics.recordRun(name, err)
	if err != nil {
		s.writeError(w, err, runIDOf(out))
		return
	}
	writeText(w, http.StatusOK, out.Solution)
}

// handleRun answers GET or POST /graph/{name}/run with a JSON run summary.
// POST accepts {"query": "..."}; the query parameter wins when both are set.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	query := r.URL.Query().Get("query")
	if query == "" && r.Method == http.MethodPost {
		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
		query = body.Query
	}
	if query == "" {
		s.writeError(w, errMissingQuery, "")
		return
	}

	out, err := s.runner.Run(r.Context(), name, query)
	s.metrics.recordRun(name, err)
	if err != nil {
		s.writeError(w, err, runIDOf(out))
		return
	}
	writeJSON(w, http.StatusOK, runResponse{
		RunID:    out.RunID,
		Solution: out.Solution,
		Path:     out.Path,
		State:    out.State,
	})
}

// handleDiagram answers GET /graph/{name}/diagram?format=plantuml|mermaid.
func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	g, ok := s.runner.Graphs().Get(name)
	if !ok {
		s.writeError(w, runner.ErrGraphUnavailable, "")
		return
	}

	format, err := triage.ParseDiagramFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	diagram, err := g.Diagram(format)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeText(w, http.StatusOK, diagram)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.runner.Journal().Get(r.Context(), chi.URLParam(r, "runID"))
	if errors.Is(err, journal.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRunListLimit)
	}

	records, err := s.runner.Journal().List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	if records == nil {
		records = []journal.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleSimpleChat answers GET /helloworld/simple/chat?query= straight from
// the chat model, without a graph.
func (s *Server) handleSimpleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "chat model not configured"})
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		query = DefaultChatQuery
	}
	req := llm.UserRequest(ChatSystemPrompt, query)
	req.TopP = ChatTopP

	resp, err := s.chat.Complete(r.Context(), req)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeText(w, http.StatusOK, resp.Content)
}

// statusFor maps a run error to an HTTP status.
func statusFor(err error) int {
	var ce *triage.CancellationError
	var llmErr *llm.Error
	switch {
	case errors.Is(err, errMissingQuery):
		return http.StatusBadRequest
	case errors.Is(err, runner.ErrGraphUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &ce), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	case classifier.IsFailure(err), errors.As(err, &llmErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	switch statusFor(err) {
	case http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusGatewayTimeout:
		return "cancelled"
	case http.StatusBadGateway:
		return "classification_failed"
	default:
		return "error"
	}
}

func runIDOf(out *runner.Outcome) string {
	if out == nil {
		return ""
	}
	return out.RunID
}

func (s *Server) writeError(w http.ResponseWriter, err error, runID string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "status", status, "run_id", runID, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), RunID: runID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}
