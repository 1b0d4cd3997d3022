package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(Recover)
	r.Use(Cors(d.CORSOrigins))

	r.Get("/health", HealthHandler{}.Health)

	jh := JobsHandler{Path: d.ArtifactPath}
	r.Get("/jobs.json", jh.Artifact)
	r.Head("/jobs.json", jh.Artifact)

	rh := RunHandler{History: d.History, Runner: d.Runner, Ctx: d.RunContext}
	r.Get("/status", rh.Status)
	r.Post("/run", rh.Trigger)

	if d.Hub != nil {
		r.Get("/events", EventsHandler{Hub: d.Hub}.ServeSSE)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}
