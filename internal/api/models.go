package api

import "time"

// SessionCreateRequest is the optional JSON body of POST /api/v1/session:
// per-session engine sizing overrides. It carries no layout; the session
// starts unloaded and its .km2 bytes arrive later in a LoadLayoutRequest.
type SessionCreateRequest struct {
	ComposingCap  int `json:"composingCap,omitempty"`
	RematchBudget int `json:"rematchBudget,omitempty"`
}

// SessionCreateResponse is returned from session creation.
type SessionCreateResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionStatusResponse reports a session's current composing state.
type SessionStatusResponse struct {
	SessionID      string `json:"sessionId"`
	LayoutLoaded   bool   `json:"layoutLoaded"`
	Composition    string `json:"composition"`
	CreatedAt      time.Time `json:"createdAt"`
}

// LoadLayoutRequest wraps a .km2 byte stream for JSON transport.
type LoadLayoutRequest struct {
	// Layout holds the raw .km2 bytes. JSON marshals []byte as base64,
	// matching how a browser client would post a FileReader result.
	Layout []byte `json:"layout"`
}

// KeyEventRequest is the wire form of match.KeyEvent: Character travels as
// a string so JSON need not special-case a bare rune.
type KeyEventRequest struct {
	VK        uint16 `json:"vk"`
	Character string `json:"character,omitempty"`
	Shift     bool   `json:"shift"`
	Ctrl      bool   `json:"ctrl"`
	Alt       bool   `json:"alt"`
	Caps      bool   `json:"caps"`
}

// EditActionResponse is the wire form of engine.EditAction.
type EditActionResponse struct {
	Kind           string `json:"kind"`
	Text           string `json:"text"`
	DeleteCount    int    `json:"deleteCount"`
	ComposingAfter string `json:"composingAfter"`
	Consumed       bool   `json:"consumed"`
}

// SetCompositionRequest is the body of PUT .../composition.
type SetCompositionRequest struct {
	Text string `json:"text"`
}

// ErrorResponse is a uniform JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse is a uniform JSON success body for actions with no
// other payload (reset, destroy).
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
