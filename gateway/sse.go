package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/parleyagent/parley/turnloop"
)

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func sseFrame(w http.ResponseWriter, flusher http.Flusher, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}

func sseDone(w http.ResponseWriter, flusher http.Flusher) {
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// turnFrame closes a streamed submit with the finalized message.
type turnFrame struct {
	Kind    string           `json:"kind"`
	Message turnloop.Message `json:"message"`
}

// errorFrame reports a rejected submit on an already-open stream.
type errorFrame struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// streamEvents forwards the conversation's runtime topic as server-sent
// events until the client disconnects.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	o, ok := s.conversation(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "stream_not_supported", "streaming not supported")
		return
	}

	sseHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	subID, events := o.Topic().Subscribe(64)
	defer o.Topic().Unsubscribe(subID)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			sseFrame(w, flusher, ev)
		}
	}
}

// submitStreaming runs a turn while forwarding its runtime events, closing
// the stream with a turn frame carrying the finalized message.
func (s *Server) submitStreaming(w http.ResponseWriter, r *http.Request, o *turnloop.Orchestrator, instruction string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "stream_not_supported", "streaming not supported")
		return
	}

	subID, events := o.Topic().Subscribe(64)
	defer o.Topic().Unsubscribe(subID)

	type submitResult struct {
		msg turnloop.Message
		err error
	}
	done := make(chan submitResult, 1)
	go func() {
		msg, err := o.Submit(r.Context(), instruction)
		done <- submitResult{msg: msg, err: err}
	}()

	sseHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			sseFrame(w, flusher, ev)
		case res := <-done:
			// Flush events that raced the turn's completion.
		drain:
			for {
				select {
				case ev := <-events:
					sseFrame(w, flusher, ev)
				default:
					break drain
				}
			}
			if res.err != nil {
				sseFrame(w, flusher, errorFrame{Kind: "error", Message: res.err.Error()})
			} else {
				sseFrame(w, flusher, turnFrame{Kind: "turn", Message: res.msg})
			}
			sseDone(w, flusher)
			return
		}
	}
}
