package intake

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"quizsolver-backend/services/jobs"
	"quizsolver-backend/services/solver"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("quizsolver.services.intake")

type Options struct {
	// shared secret every request must present
	Secret   string
	Registry *jobs.Registry
	// Solve runs one quiz chain to completion
	Solve func(ctx context.Context, url string) solver.Result
}

// Service is the plain json surface the external grader posts quiz
// requests to. The request and response shapes are fixed by that
// contract, only the jobs endpoints are ours.
type Service struct {
	secret   string
	registry *jobs.Registry
	solve    func(ctx context.Context, url string) solver.Result
}

func NewService(opts Options) Service {
	return Service{
		secret:   opts.Secret,
		registry: opts.Registry,
		solve:    opts.Solve,
	}
}

func (s Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/quiz", s.handleQuiz)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	return mux
}

func (s Service) handleQuiz(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "service:Quiz")
	defer span.End()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJson(ctx, w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON"})
		return
	}
	var body map[string]any
	err = json.Unmarshal(data, &body)
	if err != nil {
		writeJson(ctx, w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON"})
		return
	}

	email, _ := body["email"].(string)
	secret, _ := body["secret"].(string)
	quizUrl, _ := body["url"].(string)
	if email == "" || secret == "" || quizUrl == "" {
		writeJson(ctx, w, http.StatusBadRequest, map[string]any{
			"error": "Missing required fields: email, secret, url",
		})
		return
	}
	if secret != s.secret {
		span.SetStatus(codes.Error, "invalid secret")
		writeJson(ctx, w, http.StatusForbidden, map[string]any{"error": "Invalid secret"})
		return
	}

	slog.InfoContext(ctx, "accepted quiz request", "email", email, "url", quizUrl)
	job, err := s.registry.Launch(ctx, email, quizUrl, func(ctx context.Context) solver.Result {
		return s.solve(ctx, quizUrl)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to launch job")
		writeJson(ctx, w, http.StatusInternalServerError, map[string]any{"error": "Failed to launch job"})
		return
	}
	span.SetAttributes(attribute.String("job_id", job.Id))

	// the response shape the grader expects, the job id is only
	// discoverable through the jobs endpoints
	writeJson(ctx, w, http.StatusOK, map[string]any{"status": "accepted"})
}

func (s Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJson(r.Context(), w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s Service) handleListJobs(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "service:ListJobs")
	defer span.End()

	list, err := s.registry.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list jobs")
		writeJson(ctx, w, http.StatusInternalServerError, map[string]any{"error": "Failed to list jobs"})
		return
	}
	if list == nil {
		list = []jobs.Job{}
	}
	writeJson(ctx, w, http.StatusOK, map[string]any{"jobs": list})
}

func (s Service) handleGetJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "service:GetJob")
	defer span.End()

	id := r.PathValue("id")
	span.SetAttributes(attribute.String("job_id", id))

	job, ok, err := s.registry.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load job")
		writeJson(ctx, w, http.StatusInternalServerError, map[string]any{"error": "Failed to load job"})
		return
	}
	if !ok {
		writeJson(ctx, w, http.StatusNotFound, map[string]any{"error": "Job not found"})
		return
	}
	writeJson(ctx, w, http.StatusOK, job)
}

func writeJson(ctx context.Context, w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		slog.WarnContext(ctx, "failed to encode response body", "err", err)
	}
}
