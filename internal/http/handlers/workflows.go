package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowline-ai/flowline/internal/engine"
	"github.com/flowline-ai/flowline/internal/events"
	"github.com/flowline-ai/flowline/pkg/logging"
)

// EngineAPI is the subset of the engine client the workflows handler uses.
type EngineAPI interface {
	Get(ctx context.Context, id string) (*engine.WorkflowRecord, error)
	Execute(ctx context.Context, id string) (*engine.Execution, error)
	ListExecutions(ctx context.Context, id string) ([]engine.Execution, error)
	GetExecution(ctx context.Context, workflowID, executionID string) (*engine.Execution, error)
}

// WorkflowsHandler reads submitted workflows and their executions back from
// the engine, with a DynamoDB cache in front of execution status polling.
type WorkflowsHandler struct {
	engine EngineAPI
	status *engine.StatusCache
	events *events.Publisher
	logger *logging.Logger
}

// NewWorkflowsHandler creates the handler. status may be nil, which disables
// caching but not the endpoints.
func NewWorkflowsHandler(engineAPI EngineAPI, status *engine.StatusCache, logger *logging.Logger) *WorkflowsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WorkflowsHandler{engine: engineAPI, status: status, logger: logger}
}

// WithEvents publishes workflow.execution.finished events for terminal runs.
func (h *WorkflowsHandler) WithEvents(pub *events.Publisher) *WorkflowsHandler {
	h.events = pub
	return h
}

func (h *WorkflowsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{workflowID}", h.GetWorkflow)
	r.Post("/{workflowID}/execute", h.Execute)
	r.Get("/{workflowID}/executions", h.ListExecutions)
	r.Get("/{workflowID}/executions/{executionID}", h.GetExecution)
	return r
}

// GetWorkflow returns the persisted workflow record.
func (h *WorkflowsHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	record, err := h.engine.Get(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Execute triggers a manual run and caches the initial status.
func (h *WorkflowsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	exec, err := h.engine.Execute(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if h.status != nil {
		if err := h.status.Put(r.Context(), exec); err != nil {
			h.logger.Error("failed to cache execution status", "error", err, "execution_id", exec.ID)
		}
	}
	writeJSON(w, http.StatusAccepted, exec)
}

// ListExecutions returns the runs of a workflow, straight from the engine.
func (h *WorkflowsHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	execs, err := h.engine.ListExecutions(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": execs})
}

// GetExecution serves a single run's status from the cache when present,
// falling back to the engine and refreshing the cache.
func (h *WorkflowsHandler) GetExecution(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")
	executionID := chi.URLParam(r, "executionID")

	if h.status != nil {
		if record, err := h.status.Get(r.Context(), executionID); err == nil {
			writeJSON(w, http.StatusOK, record)
			return
		} else if !errors.Is(err, engine.ErrStatusNotFound) {
			h.logger.Error("status cache read failed", "error", err, "execution_id", executionID)
		}
	}

	exec, err := h.engine.GetExecution(r.Context(), workflowID, executionID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if exec.Status == engine.StatusCompleted || exec.Status == engine.StatusFailed {
		// Cache hits above return early, so a terminal status reaches this
		// point once per cache window.
		if err := h.events.ExecutionFinished(r.Context(), workflowID, exec.ID, string(exec.Status)); err != nil {
			h.logger.Error("failed to publish execution finished event", "error", err, "execution_id", exec.ID)
		}
	}
	if h.status != nil {
		if err := h.status.Put(r.Context(), exec); err != nil {
			h.logger.Error("failed to cache execution status", "error", err, "execution_id", exec.ID)
		}
	}
	writeJSON(w, http.StatusOK, exec)
}

func (h *WorkflowsHandler) writeEngineError(w http.ResponseWriter, err error) {
	var apiErr *engine.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		jsonError(w, "workflow not found", http.StatusNotFound)
		return
	}
	h.logger.Error("engine request failed", "error", err)
	jsonError(w, "engine unavailable", http.StatusBadGateway)
}
