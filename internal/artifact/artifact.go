// Package artifact reads and writes the published JSON document.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/fsutil"
)

// Artifact is the whole published document.
type Artifact struct {
	FetchedAt string                         `json:"fetchedAt"`
	Sources   map[string]domain.SourceResult `json:"sources"`
}

// Jobs returns the jobs stored under key, or nil.
func (a Artifact) Jobs(key string) []domain.JobRecord {
	if a.Sources == nil {
		return nil
	}
	return a.Sources[key].Jobs
}

// Load reads the previous artifact. A missing or unreadable file is
// reported through the log and treated as empty, never as an error.
func Load(path string) Artifact {
	empty := Artifact{Sources: map[string]domain.SourceResult{}}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logrus.Infof("[artifact] no previous artifact at %s", path)
		} else {
			logrus.Warnf("[artifact] read %s: %v; starting empty", path, err)
		}
		return empty
	}

	var a Artifact
	if err := json.Unmarshal(b, &a); err != nil {
		logrus.Warnf("[artifact] decode %s: %v; starting empty", path, err)
		return empty
	}
	if a.Sources == nil {
		a.Sources = map[string]domain.SourceResult{}
	}
	return a
}

// Writer publishes artifacts at one path.
type Writer struct {
	Path string
	Now  func() time.Time
}

// Write stamps fetchedAt, serializes sources and atomically replaces the
// file while holding the writer lock. On error the previous file is left
// as it was.
func (w Writer) Write(ctx context.Context, sources map[string]domain.SourceResult) (Artifact, error) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	unlock, err := fsutil.Lock(ctx, w.Path)
	if err != nil {
		return Artifact{}, err
	}
	defer unlock()

	if sources == nil {
		sources = map[string]domain.SourceResult{}
	}
	for k, sr := range sources {
		if sr.Jobs == nil {
			sr.Jobs = []domain.JobRecord{}
			sources[k] = sr
		}
	}

	a := Artifact{
		FetchedAt: now().UTC().Format(time.RFC3339),
		Sources:   sources,
	}
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return Artifact{}, fmt.Errorf("encode artifact: %w", err)
	}
	if err := fsutil.WriteFileAtomic(w.Path, append(b, '\n'), 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write artifact: %w", err)
	}
	return a, nil
}
