// Package httpserver contains HTTP handlers and middleware.
//
// It provides REST API endpoints for the broker including job submission,
// work polling, completion reporting, and introspection.
// The package follows clean architecture principles and provides
// a clear separation between HTTP concerns and business logic.
package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/routerfleet/regional-broker/internal/adapter/observability"
	"github.com/routerfleet/regional-broker/internal/broker"
	"github.com/routerfleet/regional-broker/internal/config"
	"github.com/routerfleet/regional-broker/internal/domain"
)

// Server holds the dependencies every HTTP handler needs: the broker core,
// app configuration, and a shared request-body validator.
type Server struct {
	Cfg      config.Config
	Broker   *broker.Broker
	validate *validator.Validate
}

// NewServer constructs a Server.
func NewServer(cfg config.Config, b *broker.Broker) *Server {
	return &Server{Cfg: cfg, Broker: b, validate: validator.New()}
}

type enqueueRequest struct {
	JobID    string         `json:"jobId" validate:"required"`
	GraphID  string         `json:"graphId"`
	Version  string         `json:"version"`
	Width    int            `json:"width" validate:"required,min=1"`
	Height   int            `json:"height" validate:"required,min=1"`
	MinLon   float64        `json:"minLon"`
	MinLat   float64        `json:"minLat"`
	MaxLon   float64        `json:"maxLon"`
	MaxLat   float64        `json:"maxLat"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// EnqueueHandler handles POST /enqueue/regional: validates and submits a
// template task, returning 202 on acceptance or 409 on a duplicate jobId.
func (s *Server) EnqueueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmtInvalid("malformed request body"), nil)
			return
		}
		req.JobID = SanitizeJobID(req.JobID)
		if err := s.validate.Struct(req); err != nil {
			writeError(w, r, fmtInvalid(err.Error()), nil)
			return
		}

		template := domain.TemplateTask{
			JobID:    req.JobID,
			Category: domain.NewWorkerCategory(req.GraphID, req.Version),
			Width:    req.Width, Height: req.Height,
			MinLon: req.MinLon, MinLat: req.MinLat, MaxLon: req.MaxLon, MaxLat: req.MaxLat,
			Payload: req.Payload,
		}

		if err := s.Broker.EnqueueJob(r.Context(), template); err != nil {
			LoggerFrom(r).Warn("enqueue rejected", "job_id", req.JobID, "error", err)
			writeError(w, r, err, nil)
			return
		}
		observability.EnqueueJob(template.Category.String())
		writeJSON(w, http.StatusAccepted, map[string]string{"jobId": req.JobID})
	}
}

// DequeueHandler handles POST /dequeue/regional: records the polling
// worker's liveness and returns up to MaxTasksPerPoll tasks for its category.
func (s *Server) DequeueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status domain.WorkerStatus
		if err := json.NewDecoder(r.Body).Decode(&status); err != nil {
			writeError(w, r, fmtInvalid("malformed request body"), nil)
			return
		}
		if err := s.validate.Struct(status); err != nil {
			writeError(w, r, fmtInvalid(err.Error()), nil)
			return
		}

		cat := status.Category()
		s.Broker.RecordWorker(domain.WorkerObservation{
			WorkerID: status.WorkerID, Category: cat, IPAddress: status.IPAddress,
		})

		tasks := s.Broker.DequeueWork(cat)
		observability.DispatchTasks(cat.String(), len(tasks))
		if tasks == nil {
			tasks = []domain.Task{}
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

// CompleteHandler handles POST /complete/{jobId}/{taskIndex}: marks the task
// complete. Any request body is accepted but ignored; result payloads are
// opaque to the broker.
func (s *Server) CompleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := SanitizeJobID(chi.URLParam(r, "jobId"))
		idxStr := chi.URLParam(r, "taskIndex")
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			writeError(w, r, fmtInvalid("taskIndex must be an integer"), nil)
			return
		}

		accepted, finished, category := s.Broker.CompleteTask(jobID, idx)
		if !accepted {
			writeError(w, r, domain.ErrNotFound, nil)
			return
		}
		if finished {
			observability.CompleteJob(category.String())
		}
		writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
	}
}

// DeleteJobHandler handles DELETE /jobs/{jobId}: cancels a job outright.
func (s *Server) DeleteJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := SanitizeJobID(chi.URLParam(r, "jobId"))
		if ok := s.Broker.DeleteJob(jobID); !ok {
			writeError(w, r, domain.ErrNotFound, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

// ListJobsHandler handles GET /jobs: returns a snapshot of every job
// currently in the ring.
func (s *Server) ListJobsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Broker.ListJobs())
	}
}

// ListWorkersHandler handles GET /workers: returns a snapshot of every
// worker the broker currently tracks as live.
func (s *Server) ListWorkersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Broker.ListWorkers())
	}
}

// HealthzHandler reports basic liveness; the broker has no external
// dependencies to probe so this never fails once the process is up.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// AdminTokenHandler issues a short-lived admin JWT given a username and
// password matching the configured admin credentials.
func (s *Server) AdminTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeError(w, r, fmtInvalid("malformed request body"), nil)
			return
		}
		if creds.Username != s.Cfg.AdminUsername || creds.Password != s.Cfg.AdminPassword {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		sm := NewSessionManager(s.Cfg)
		token, err := sm.GenerateJWT(creds.Username, 1*time.Hour)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func fmtInvalid(msg string) error {
	return &invalidArgumentError{msg: msg}
}

type invalidArgumentError struct{ msg string }

func (e *invalidArgumentError) Error() string { return e.msg }

func (e *invalidArgumentError) Unwrap() error { return domain.ErrInvalidArgument }
