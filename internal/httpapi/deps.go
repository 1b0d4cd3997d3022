package httpapi

import (
	"context"
	"net/http"

	"github.com/jobradar/jobradar/internal/events"
	"github.com/jobradar/jobradar/internal/scheduler"
	"github.com/jobradar/jobradar/internal/store"
)

type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

type Runner interface {
	Status() scheduler.Status
	RunNow(ctx context.Context) error
}

type Deps struct {
	// ArtifactPath is the published jobs.json.
	ArtifactPath string

	History RunLister // nil when run history is disabled
	Runner  Runner
	Hub     *events.Hub
	Metrics http.Handler

	CORSOrigins []string

	// RunContext bounds runs started through POST /run. It outlives the
	// request that triggered them.
	RunContext context.Context
}
