package web

import (
	"encoding/json"
	"net/http"
	"sync"
)

// eventWriter serializes newline-delimited JSON events onto a chat
// response. Writes are serialized because approval gating can interleave
// with provider callbacks.
type eventWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventWriter(w http.ResponseWriter, flusher http.Flusher) *eventWriter {
	return &eventWriter{w: w, flusher: flusher}
}

func (e *eventWriter) write(v interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(append(data, '\n')); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
