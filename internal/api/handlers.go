package api

import (
	"net/http"

	"github.com/thandwin/kmcore/internal/engine"
	"github.com/thandwin/kmcore/internal/match"
	"github.com/thandwin/kmcore/internal/vkey"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionCreateRequest
	if r.ContentLength > 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := s.sessions.CreateSession(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, SessionCreateResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": s.sessions.ListSessions(),
	})
}

func (s *Server) getSessionOr404(w http.ResponseWriter, id string) *Session {
	session, err := s.sessions.GetSession(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil
	}
	return session
}

func (s *Server) handleGetSessionStatus(w http.ResponseWriter, r *http.Request, id string) {
	session := s.getSessionOr404(w, id)
	if session == nil {
		return
	}
	var resp SessionStatusResponse
	session.WithLock(func(e *engine.Engine) {
		resp = SessionStatusResponse{
			SessionID:    id,
			LayoutLoaded: session.loaded,
			Composition:  e.GetComposition(),
			CreatedAt:    session.CreatedAt,
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.sessions.DestroySession(id); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleLoadLayout handles POST /api/v1/session/{id}/layout.
func (s *Server) handleLoadLayout(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session := s.getSessionOr404(w, id)
	if session == nil {
		return
	}

	var req LoadLayoutRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var loadErr error
	session.WithLock(func(e *engine.Engine) {
		loadErr = e.LoadLayout(req.Layout)
	})
	if loadErr != nil {
		writeError(w, http.StatusBadRequest, loadErr.Error())
		return
	}
	session.loaded = true

	s.broadcaster.BroadcastSession(id, "layout_loaded")
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleProcessKey handles POST /api/v1/session/{id}/key.
func (s *Server) handleProcessKey(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session := s.getSessionOr404(w, id)
	if session == nil {
		return
	}

	var req KeyEventRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event := match.KeyEvent{
		VK:    vkey.VK(req.VK),
		Shift: req.Shift,
		Ctrl:  req.Ctrl,
		Alt:   req.Alt,
		Caps:  req.Caps,
	}
	if req.Character != "" {
		runes := []rune(req.Character)
		event.Character = &runes[0]
	}

	var action engine.EditAction
	session.WithLock(func(e *engine.Engine) {
		action = e.ProcessKey(event)
	})

	resp := EditActionResponse{
		Kind:           action.Kind.String(),
		Text:           action.Text,
		DeleteCount:    action.DeleteCount,
		ComposingAfter: action.ComposingAfter,
		Consumed:       action.Consumed,
	}
	s.broadcaster.BroadcastAction(id, resp)
	s.broadcaster.BroadcastComposition(id, action.ComposingAfter)
	writeJSON(w, http.StatusOK, resp)
}

// handleComposition handles GET/PUT /api/v1/session/{id}/composition.
func (s *Server) handleComposition(w http.ResponseWriter, r *http.Request, id string) {
	session := s.getSessionOr404(w, id)
	if session == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		var text string
		session.WithLock(func(e *engine.Engine) { text = e.GetComposition() })
		writeJSON(w, http.StatusOK, map[string]string{"composition": text})

	case http.MethodPut:
		var req SetCompositionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		session.WithLock(func(e *engine.Engine) { e.SetComposition(req.Text) })
		s.broadcaster.BroadcastComposition(id, req.Text)
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleReset handles POST /api/v1/session/{id}/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session := s.getSessionOr404(w, id)
	if session == nil {
		return
	}
	session.WithLock(func(e *engine.Engine) { e.Reset() })
	s.broadcaster.BroadcastSession(id, "reset")
	s.broadcaster.BroadcastComposition(id, "")
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
