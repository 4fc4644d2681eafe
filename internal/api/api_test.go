package api_test

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thandwin/kmcore/internal/api"
)

// emptyLayout builds the smallest valid .km2 byte stream: no strings, no
// rules, version 1.5 (right_alt meaningful) with track_caps and right_alt
// set and the other option bytes zeroed.
func emptyLayout() []byte {
	var buf bytes.Buffer
	buf.WriteString("KMKL")
	buf.WriteByte(1)
	buf.WriteByte(5)
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // strings
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // info
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // rules
	buf.Write([]byte{1, 0, 0, 0, 1})                   // track_caps, auto_bksp, eat, pos_based, right_alt
	return buf.Bytes()
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := api.NewServer(api.Config{Addr: "127.0.0.1:0"})
	return httptest.NewServer(srv.Handler())
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	// Create
	resp, err := http.Post(ts.URL+"/api/v1/session", "application/json", nil)
	require.NoError(t, err)
	var created api.SessionCreateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.NotEmpty(t, created.SessionID)

	// Status before layout load
	statusResp, err := http.Get(ts.URL + "/api/v1/session/" + created.SessionID)
	require.NoError(t, err)
	var status api.SessionStatusResponse
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	statusResp.Body.Close()
	assert.False(t, status.LayoutLoaded)

	// Load layout
	layoutBody, err := json.Marshal(api.LoadLayoutRequest{Layout: emptyLayout()})
	require.NoError(t, err)
	loadResp, err := http.Post(ts.URL+"/api/v1/session/"+created.SessionID+"/layout", "application/json", bytes.NewReader(layoutBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, loadResp.StatusCode)
	loadResp.Body.Close()

	// Process a key: identity insertion with no rules loaded.
	keyBody, err := json.Marshal(api.KeyEventRequest{VK: 0x41, Character: "a"})
	require.NoError(t, err)
	keyResp, err := http.Post(ts.URL+"/api/v1/session/"+created.SessionID+"/key", "application/json", bytes.NewReader(keyBody))
	require.NoError(t, err)
	var action api.EditActionResponse
	require.NoError(t, json.NewDecoder(keyResp.Body).Decode(&action))
	keyResp.Body.Close()
	assert.Equal(t, "insert", action.Kind)
	assert.Equal(t, "a", action.Text)
	assert.Equal(t, "a", action.ComposingAfter)

	// Composition getter reflects it.
	compResp, err := http.Get(ts.URL + "/api/v1/session/" + created.SessionID + "/composition")
	require.NoError(t, err)
	var comp map[string]string
	require.NoError(t, json.NewDecoder(compResp.Body).Decode(&comp))
	compResp.Body.Close()
	assert.Equal(t, "a", comp["composition"])

	// Reset clears it.
	resetResp, err := http.Post(ts.URL+"/api/v1/session/"+created.SessionID+"/reset", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resetResp.StatusCode)
	resetResp.Body.Close()

	compResp2, err := http.Get(ts.URL + "/api/v1/session/" + created.SessionID + "/composition")
	require.NoError(t, err)
	var comp2 map[string]string
	require.NoError(t, json.NewDecoder(compResp2.Body).Decode(&comp2))
	compResp2.Body.Close()
	assert.Equal(t, "", comp2["composition"])

	// Destroy removes it.
	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/session/"+created.SessionID, nil)
	require.NoError(t, err)
	destroyResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, destroyResp.StatusCode)
	destroyResp.Body.Close()

	statusResp2, err := http.Get(ts.URL + "/api/v1/session/" + created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, statusResp2.StatusCode)
	statusResp2.Body.Close()
}

func TestSetComposition(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/session", "application/json", nil)
	require.NoError(t, err)
	var created api.SessionCreateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	body, err := json.Marshal(api.SetCompositionRequest{Text: "hello"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/session/"+created.SessionID+"/composition", bytes.NewReader(body))
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, putResp.StatusCode)
	putResp.Body.Close()

	compResp, err := http.Get(ts.URL + "/api/v1/session/" + created.SessionID + "/composition")
	require.NoError(t, err)
	var comp map[string]string
	require.NoError(t, json.NewDecoder(compResp.Body).Decode(&comp))
	compResp.Body.Close()
	assert.Equal(t, "hello", comp["composition"])
}

func TestUnknownSessionReturns404(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/session/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
