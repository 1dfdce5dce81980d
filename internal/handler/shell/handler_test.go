package shell

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shellservice "github.com/zhouzirui/xinling/backend/internal/service/shell"
	"github.com/zhouzirui/xinling/backend/internal/storage"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(shellservice.New(storage.NewMemoryStore())).RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeState(t *testing.T, resp *httptest.ResponseRecorder) stateResponse {
	t.Helper()
	var state stateResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &state))
	return state
}

func TestInitialState(t *testing.T) {
	resp := do(setupRouter(), http.MethodGet, "/shell", "")
	require.Equal(t, http.StatusOK, resp.Code)

	state := decodeState(t, resp)
	assert.Equal(t, shellservice.ViewChat, state.View)
	assert.True(t, state.DisclaimerRequired)
	assert.Contains(t, state.Disclaimer, "400-161-9995")
}

func TestSwitchView(t *testing.T) {
	r := setupRouter()

	resp := do(r, http.MethodPut, "/shell/view", `{"view":"mood"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, shellservice.ViewMood, decodeState(t, resp).View)

	resp = do(r, http.MethodPut, "/shell/view", `{"view":"settings"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	state := decodeState(t, do(r, http.MethodGet, "/shell", ""))
	assert.Equal(t, shellservice.ViewMood, state.View)
}

func TestAcceptDisclaimerOnce(t *testing.T) {
	r := setupRouter()

	resp := do(r, http.MethodPost, "/shell/disclaimer", "")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	state := decodeState(t, do(r, http.MethodGet, "/shell", ""))
	assert.False(t, state.DisclaimerRequired)
}
