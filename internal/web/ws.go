package web

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/consts"
	"github.com/codefionn/workspaced/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  consts.BufferSize1KB,
	WriteBufferSize: consts.BufferSize1KB,
	CheckOrigin: func(r *http.Request) bool {
		// Local daemon, auth is the bearer token.
		return true
	},
}

// approvalResponse is the inbound decision frame on the approval socket.
type approvalResponse struct {
	Type       string `json:"type"`
	ApprovalID string `json:"approvalId"`
	Approved   bool   `json:"approved"`
	Reason     string `json:"reason,omitempty"`
}

// handleApprovalSocket attaches an approval listener. Pending requests are
// replayed on join; decisions flow back as approval-response frames.
func (s *Server) handleApprovalSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade approval socket: %v", err)
		return
	}

	sub := s.broker.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for env := range sub.C {
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var resp approvalResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			logger.Warn("Ignoring malformed approval frame: %v", err)
			continue
		}
		if resp.Type != "approval-response" {
			continue
		}

		if err := s.broker.Resolve(resp.ApprovalID, resp.Approved); err != nil {
			// Settled or timed out already.
			logger.Debug("Approval %s not resolvable: %v", resp.ApprovalID, err)
		}
	}

	// Unsubscribing closes sub.C, which is what lets the writer
	// goroutine finish.
	s.broker.Unsubscribe(sub)
	conn.Close()
	<-done
}

// resizeFrame is the only structured control frame on the terminal
// socket; everything else is raw bytes for the PTY.
type resizeFrame struct {
	Type string `json:"type"`
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

// handleTerminalSocket creates a shell session in the workspace's
// worktree and bridges it to the connection: PTY output becomes binary
// frames, inbound frames become PTY input unless they decode as a
// resize control frame.
func (s *Server) handleTerminalSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cwd := r.URL.Query().Get("cwd")
	if id := r.URL.Query().Get("workspace"); id != "" {
		ws, err := s.store.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		cwd = ws.WorktreePath
	}
	if cwd == "" {
		writeError(w, apperr.New(apperr.KindValidation, "workspace or cwd query parameter is required"))
		return
	}

	session, err := s.terminals.Create(cwd)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade terminal socket: %v", err)
		s.terminals.Remove(session.ID)
		return
	}

	logger.Info("Terminal session %s attached in %s", session.ID, cwd)

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, consts.BufferSize4KB)
		for {
			n, err := session.Read(buf)
			if n > 0 {
				if writeErr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); writeErr != nil {
					return
				}
			}
			if err != nil {
				// PTY read failing means the shell exited.
				exit, _ := json.Marshal(map[string]interface{}{
					"type":     "exit",
					"exitCode": session.Wait(),
				})
				_ = conn.WriteMessage(websocket.TextMessage, exit)
				conn.Close()
				return
			}
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		if msgType == websocket.TextMessage {
			var frame resizeFrame
			if err := json.Unmarshal(data, &frame); err == nil && frame.Type == "resize" {
				if err := session.Resize(frame.Cols, frame.Rows); err != nil {
					logger.Warn("Resize of %s failed: %v", session.ID, err)
				}
				continue
			}
		}

		if _, err := session.Write(data); err != nil {
			break
		}
	}

	s.terminals.Remove(session.ID)
	conn.Close()
	<-done
	logger.Info("Terminal session %s detached", session.ID)
}
