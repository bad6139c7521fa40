package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagesmith.dev/engine/internal/application/router"
	"pagesmith.dev/engine/internal/application/store"
	"pagesmith.dev/engine/internal/core/apperr"
	"pagesmith.dev/engine/internal/infrastructure/broadcast"
	"pagesmith.dev/engine/internal/infrastructure/metrics"
	"pagesmith.dev/engine/internal/infrastructure/storage/memory"
)

type fixture struct {
	server *Server
	hub    *broadcast.Hub
	http   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(context.Background(), memory.New())
	require.NoError(t, err)

	hub := broadcast.NewHub(broadcast.DefaultBuffer, nil)
	collector := metrics.NewCollector()
	r := router.New(s, router.WithBroadcaster(hub), router.WithMetrics(collector))
	server := NewServer(r, hub, WithMetricsHandler(collector.Handler()), WithPingInterval(50*time.Millisecond))

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		server.Close()
		ts.Close()
	})
	return &fixture{server: server, hub: hub, http: ts}
}

func (f *fixture) post(t *testing.T, body string) (int, router.Response) {
	t.Helper()
	resp, err := http.Post(f.http.URL+"/v1/messages", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out router.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return f.hub.Len() > 0 }, time.Second, 10*time.Millisecond)
	return conn
}

const savePlugin = `{
	"type": "save-plugin",
	"plugin": {
		"id": "banner",
		"name": "Banner",
		"targetDomains": ["*.example.com"],
		"operations": [{"type": "delete", "selector": ".ads"}]
	}
}`

func TestServer_Messages(t *testing.T) {
	f := newFixture(t)

	status, resp := f.post(t, savePlugin)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
	assert.Equal(t, router.TypeSavePlugin, resp.Type)
	require.NotNil(t, resp.Record)
	assert.Equal(t, "banner", resp.Record.ID())

	status, resp = f.post(t, `{"type":"get-all-plugins"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.Records, 1)
}

func TestServer_Messages_ErrorStatus(t *testing.T) {
	f := newFixture(t)
	_, _ = f.post(t, `{"type":"save-plugin","plugin":{"id":"script","name":"Script","operations":[{"type":"execute","code":"1"}]}}`)

	tests := []struct {
		name         string
		body         string
		expectStatus int
		expectCode   apperr.Code
	}{
		{
			name:         "Malformed",
			body:         `{"type":`,
			expectStatus: http.StatusBadRequest,
			expectCode:   apperr.CodeParse,
		},
		{
			name:         "UnknownType",
			body:         `{"type":"format-disk"}`,
			expectStatus: http.StatusBadRequest,
			expectCode:   apperr.CodeParse,
		},
		{
			name:         "Validation",
			body:         `{"type":"save-plugin","plugin":{"id":"x","name":"  "}}`,
			expectStatus: http.StatusBadRequest,
			expectCode:   apperr.CodeValidation,
		},
		{
			name:         "SettingsSchema",
			body:         `{"type":"update-settings","settings":{"securityLevel":"root"}}`,
			expectStatus: http.StatusBadRequest,
			expectCode:   apperr.CodeValidation,
		},
		{
			name:         "NotFound",
			body:         `{"type":"delete-plugin","pluginId":"missing"}`,
			expectStatus: http.StatusNotFound,
			expectCode:   apperr.CodeNotFound,
		},
		{
			name:         "PolicyDenied",
			body:         `{"type":"toggle-plugin","pluginId":"script","enabled":true}`,
			expectStatus: http.StatusForbidden,
			expectCode:   apperr.CodePolicyDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := f.post(t, tt.body)
			assert.Equal(t, tt.expectStatus, status)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectCode, resp.Error.Code)
		})
	}
}

func TestServer_Messages_RejectsOversizedBody(t *testing.T) {
	f := newFixture(t)
	body := `{"type":"import-plugin","document":"` + strings.Repeat("a", maxRequestBytes) + `"}`

	status, resp := f.post(t, body)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperr.CodeParse, resp.Error.Code)
}

func TestServer_Messages_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.http.URL + "/v1/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Events_ReceivesReload(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	_, resp := f.post(t, savePlugin)
	require.True(t, resp.Success)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.JSONEq(t, `{"type":"reload-plugins"}`, string(msg))
}

func TestServer_Events_UnregistersOnClose(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	require.Equal(t, 1, f.hub.Len())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return f.hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestServer_Events_ClosedOnShutdown(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	f.server.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)
	_, _ = f.post(t, savePlugin)

	resp, err := http.Get(f.http.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["plugins"])
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t)
	_, _ = f.post(t, `{"type":"get-settings"}`)

	resp, err := http.Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `pagesmith_router_requests_total{code="OK",type="get-settings"} 1`)
}

func TestServer_ServeListener_StopsOnCancel(t *testing.T) {
	s, err := store.Open(context.Background(), memory.New())
	require.NoError(t, err)
	hub := broadcast.NewHub(1, nil)
	server := NewServer(router.New(s), hub)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.ServeListener(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperr.CodeValidation))
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperr.CodeParse))
	assert.Equal(t, http.StatusNotFound, StatusFor(apperr.CodeNotFound))
	assert.Equal(t, http.StatusForbidden, StatusFor(apperr.CodePolicyDenied))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(apperr.CodeInternal))
}
