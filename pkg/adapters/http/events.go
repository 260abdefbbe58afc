package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/observability"
)

// SubscribeEvents handles GET /events as a Server-Sent Events stream.
//
// Definition reloads arrive as "event: reload" with the controller name as
// data. Animator lifecycle events arrive as "event: <type>" with a JSON
// payload. ?controller= keeps only one controller's events and ?types= is
// a comma separated list of event types to keep.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	reloads, err := s.Engine.Watch(ctx)
	if err != nil {
		s.logger.Warn("events: watch unavailable", "error", err)
		reloads = nil
	}

	var events <-chan observability.Event
	if s.Events != nil {
		events = s.Events.Subscribe(ctx)
	}

	controller := r.URL.Query().Get("controller")
	var types map[domain.EventType]bool
	if raw := r.URL.Query().Get("types"); raw != "" {
		types = make(map[domain.EventType]bool)
		for _, t := range strings.Split(raw, ",") {
			types[domain.EventType(strings.TrimSpace(t))] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for reloads != nil || events != nil {
		select {
		case <-ctx.Done():
			return
		case name, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			if controller != "" && name != controller {
				continue
			}
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", name)
			flusher.Flush()
		case e, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !keep(e, controller, types) {
				continue
			}
			data, err := json.Marshal(e)
			if err != nil {
				s.logger.Error("events: encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
			flusher.Flush()
		}
	}
}

func keep(e observability.Event, controller string, types map[domain.EventType]bool) bool {
	if types != nil && !types[e.Type] {
		return false
	}
	if controller == "" {
		return true
	}
	switch {
	case e.Transition != nil:
		return e.Transition.Controller == controller
	case e.State != nil:
		return e.State.Controller == controller
	case e.TimeEvent != nil:
		return e.TimeEvent.Controller == controller
	}
	return false
}
