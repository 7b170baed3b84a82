package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/parleyagent/parley/capability"
	"github.com/parleyagent/parley/modelroute"
	"github.com/parleyagent/parley/turnloop"
)

type conversationSummary struct {
	ID           string `json:"id"`
	Model        string `json:"model,omitempty"`
	Provider     string `json:"provider,omitempty"`
	AutoExecute  bool   `json:"auto_execute"`
	MessageCount int    `json:"message_count"`
	Executing    bool   `json:"executing"`
}

func summarize(o *turnloop.Orchestrator) conversationSummary {
	cfg := o.Config()
	return conversationSummary{
		ID:           o.ID(),
		Model:        cfg.Model,
		Provider:     cfg.Provider,
		AutoExecute:  cfg.AutoExecute,
		MessageCount: o.Store().Len(),
		Executing:    o.Executing(),
	}
}

type submitRequest struct {
	Instruction string `json:"instruction"`
}

type executeRequest struct {
	MessageID string `json:"message_id"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, modelroute.ListModels(r.URL.Query().Get("provider")))
}

func (s *Server) listCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"methods": s.registry.Methods()})
}

func (s *Server) invokeCapability(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	issues, err := capability.ValidateRequestJSON(body)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if len(issues) > 0 {
		writeErr(w, http.StatusBadRequest, "invalid_request", strings.Join(issues, "; "))
		return
	}

	var req capability.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	res, err := s.registry.Invoke(r.Context(), req)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "invoke_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var ov ConversationOverrides
	if err := decodeJSON(r, &ov); err != nil && !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	o := s.manager.Create(ov)
	s.logger.Info("conversation created", "conversation_id", o.ID())
	writeJSON(w, http.StatusCreated, summarize(o))
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	convs := s.manager.List()
	out := make([]conversationSummary, 0, len(convs))
	for _, o := range convs {
		out = append(out, summarize(o))
	}
	writeJSON(w, http.StatusOK, out)
}

// conversation resolves the orchestrator named in the route, answering 404
// itself when it is gone.
func (s *Server) conversation(w http.ResponseWriter, r *http.Request) (*turnloop.Orchestrator, bool) {
	id := chi.URLParam(r, "conversation_id")
	o, ok := s.manager.Get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "not_found", fmt.Sprintf("conversation %s not found", id))
		return nil, false
	}
	return o, true
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	if o, ok := s.conversation(w, r); ok {
		writeJSON(w, http.StatusOK, summarize(o))
	}
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversation_id")
	if err := s.manager.Remove(id); err != nil {
		writeErr(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	s.logger.Info("conversation closed", "conversation_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	o, ok := s.conversation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, o.Messages())
}

func (s *Server) submitMessage(w http.ResponseWriter, r *http.Request) {
	o, ok := s.conversation(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		writeErr(w, http.StatusBadRequest, "empty_instruction", "instruction is required")
		return
	}

	if wantsEventStream(r) {
		s.submitStreaming(w, r, o, req.Instruction)
		return
	}

	msg, err := o.Submit(r.Context(), req.Instruction)
	if err != nil {
		writeErr(w, http.StatusConflict, "turn_in_progress", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) executeCalls(w http.ResponseWriter, r *http.Request) {
	o, ok := s.conversation(w, r)
	if !ok {
		return
	}
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.MessageID == "" {
		writeErr(w, http.StatusBadRequest, "missing_message_id", "message_id is required")
		return
	}

	result, err := o.ExecuteCalls(r.Context(), req.MessageID)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "execute_failed", err.Error())
		return
	}
	if result == nil {
		// A run is already in flight for this message, or the failure was
		// resolved into the conversation.
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) cancelTurn(w http.ResponseWriter, r *http.Request) {
	o, ok := s.conversation(w, r)
	if !ok {
		return
	}
	o.Cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *Server) clearConversation(w http.ResponseWriter, r *http.Request) {
	o, ok := s.conversation(w, r)
	if !ok {
		return
	}
	o.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	o, ok := s.conversation(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		writeErr(w, http.StatusBadRequest, "empty_instruction", "instruction is required")
		return
	}

	msg, err := o.SubmitTask(r.Context(), req.Instruction)
	if err != nil {
		writeErr(w, http.StatusConflict, "task_rejected", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
