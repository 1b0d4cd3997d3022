package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jobradar/jobradar/internal/events"
)

// keepAlive is how often an idle stream receives a ping.
const keepAlive = 30 * time.Second

type EventsHandler struct {
	Hub *events.Hub
}

func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	send := func(e events.Event) {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, e.Encode())
		flusher.Flush()
	}
	send(events.New(events.TypePing, nil))

	tick := time.NewTicker(keepAlive)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			send(events.New(events.TypePing, nil))
		case e, ok := <-ch:
			if !ok {
				return
			}
			send(e)
		}
	}
}
