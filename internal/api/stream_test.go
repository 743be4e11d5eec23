package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avabackoff/internal/form"
)

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readPolicy(t *testing.T, conn *websocket.Conn) PolicyResponse {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var p PolicyResponse
	require.NoError(t, json.Unmarshal(data, &p))
	return p
}

func TestStream_SnapshotThenUpdates(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialStream(t, srv)

	first := readPolicy(t, conn)
	assert.Equal(t, form.Default(), first.Values)
	assert.True(t, first.Valid)

	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	next := form.Default()
	next.Strategy = "fixed"
	next.MaxRetries = "3"
	s.SetPolicy(next)

	update := readPolicy(t, conn)
	assert.Equal(t, next, update.Values)
	require.NotNil(t, update.Summary)
	assert.Equal(t, 1500.0, update.Summary.TotalDelayMs)
}

func TestStream_ClientLeaves(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialStream(t, srv)
	readPolicy(t, conn)
	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	assert.Eventually(t, func() bool { return s.hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStream_CloseDisconnectsClients(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialStream(t, srv)
	readPolicy(t, conn)
	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	s.hub.Close()
	assert.Equal(t, 0, s.hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	late := dialStream(t, srv)
	require.NoError(t, late.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = late.ReadMessage()
	assert.Error(t, err)
}

func TestHub_PublishWithoutClients(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil, nil, nil)
	assert.NoError(t, hub.Publish(map[string]int{"a": 1}))
	assert.Error(t, hub.Publish(func() {}))
	assert.Equal(t, 0, hub.Clients())
}
