package web

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/llm"
	"github.com/codefionn/workspaced/internal/logger"
	"github.com/codefionn/workspaced/internal/workspace"
)

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input workspace.CreateInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, err)
		return
	}

	ws, err := s.workspaces.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"workspaces": s.store.List()})
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	ws, err := s.store.Get(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleBranchExists(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var probe workspace.BranchProbe
	if err := decodeBody(r, &probe); err != nil {
		writeError(w, err)
		return
	}

	exists, err := s.workspaces.BranchExists(r.Context(), probe)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (s *Server) handleDiffs(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ws, err := s.store.Get(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := s.diffs.FileChanges(r.Context(), ws.WorktreePath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"diffs": entries})
}

func (s *Server) handleFileTree(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ws, err := s.store.Get(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	tree, err := s.diffs.FileTree(r.Context(), ws.WorktreePath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"fileTree": tree})
}

func (s *Server) handleDiffHunks(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	file := r.URL.Query().Get("file")
	if file == "" {
		writeError(w, apperr.New(apperr.KindValidation, "file query parameter is required"))
		return
	}

	ws, err := s.store.Get(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	hunks, err := s.diffs.FileHunks(r.Context(), ws.WorktreePath, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hunks": hunks})
}

type runScriptRequest struct {
	Type string `json:"type"`
}

func (s *Server) handleRunScript(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req runScriptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Type == "" {
		writeError(w, apperr.New(apperr.KindValidation, "script type is required"))
		return
	}

	result, err := s.workspaces.RunScript(r.Context(), s.run, ps.ByName("id"), req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleOAuthStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.oauth.Status())
}

func (s *Server) handleOAuthStart(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	result, err := s.oauth.StartLogin()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type oauthCompleteRequest struct {
	Code     string `json:"code"`
	Verifier string `json:"verifier"`
	State    string `json:"state"`
}

func (s *Server) handleOAuthComplete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req oauthCompleteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.oauth.CompleteLogin(r.Context(), req.Code, req.Verifier, req.State); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.oauth.Status())
}

func (s *Server) handleOAuthToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	token, err := s.oauth.AccessToken(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (s *Server) handleOAuthLogout(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if err := s.oauth.Logout(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

type chatRequest struct {
	Messages     []*llm.Message `json:"messages"`
	SystemPrompt string         `json:"systemPrompt,omitempty"`
	Model        string         `json:"model,omitempty"`
	MaxTokens    int            `json:"maxTokens,omitempty"`
}

// handleChat streams provider events as newline-delimited JSON. Tool
// calls that require approval block the stream until a decision arrives
// on the approval channel or the broker times out.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, apperr.New(apperr.KindValidation, "at least one message is required"))
		return
	}

	mode, secret, err := s.oauth.Credential(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	model := req.Model
	if model == "" {
		model = s.model
	}
	provider, err := s.newLLM(mode, secret, model)
	if err != nil {
		writeError(w, err)
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	stream := newEventWriter(w, flusher)

	streamErr := provider.Stream(r.Context(), &llm.Request{
		Messages:     req.Messages,
		SystemPrompt: req.SystemPrompt,
		Model:        model,
		MaxTokens:    req.MaxTokens,
	}, func(ev llm.Event) error {
		if ev.Type == llm.EventToolCall {
			return s.gateToolCall(r, stream, ev)
		}
		return stream.write(ev)
	})

	if streamErr != nil {
		logger.Warn("Chat stream ended with error: %v", streamErr)
		_ = stream.write(llm.Event{Type: "error", Text: streamErr.Error()})
	}
}

// gateToolCall asks the approval broker before forwarding a tool call.
// Safe tools pass through untouched, denied and timed-out calls are
// reported to the chat client as denials.
func (s *Server) gateToolCall(r *http.Request, stream *eventWriter, ev llm.Event) error {
	if !s.policy.RequiresApproval(ev.ToolName) {
		return stream.write(ev)
	}

	approved, err := s.broker.Request(r.Context(), ev.ToolName, ev.ToolInput)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindTimeout {
			return stream.write(llm.Event{Type: "tool_denied", ToolName: ev.ToolName, Text: "approval timed out"})
		}
		return err
	}
	if !approved {
		return stream.write(llm.Event{Type: "tool_denied", ToolName: ev.ToolName, Text: "denied by user"})
	}
	return stream.write(ev)
}
