// Package events fans pipeline notifications out to live subscribers, such
// as server-sent-event clients of the viewer.
package events

import (
	"encoding/json"
	"time"
)

const (
	TypePing        = "ping"
	TypeRunFinished = "run_finished"
)

type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RunFinished is the payload of a TypeRunFinished event.
type RunFinished struct {
	RunID     string `json:"runId"`
	Status    string `json:"status"`
	FetchedAt string `json:"fetchedAt,omitempty"`
	TotalJobs int    `json:"totalJobs"`
	Error     string `json:"error,omitempty"`
}

func New(typ string, data any) Event {
	e := Event{Type: typ, Version: 1, At: time.Now().UTC()}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			e.Data = b
		}
	}
	return e
}

// Encode renders e as one line of JSON.
func (e Event) Encode() string {
	b, _ := json.Marshal(e)
	return string(b)
}
