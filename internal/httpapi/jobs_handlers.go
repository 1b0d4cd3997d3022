package httpapi

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
)

type JobsHandler struct {
	Path string
}

// Artifact serves the published jobs.json as written, with Last-Modified
// taken from the file so conditional requests work.
func (h JobsHandler) Artifact(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(h.Path)
	if errors.Is(err, fs.ErrNotExist) {
		WriteError(w, r, http.StatusNotFound, "not_published", "no artifact has been published yet")
		return
	}
	if err != nil {
		logrus.Errorf("[http] open artifact: %v", err)
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "artifact unavailable")
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "artifact unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, "jobs.json", st.ModTime(), f)
}
