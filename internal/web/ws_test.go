package web

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/workspaced/internal/approval"
)

func dialApprovals(t *testing.T, ts *testServer, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/approvals?token=" + ts.srv.AuthToken()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestApprovalSocketDisconnectDetachesListener(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.srv.Handler())
	defer srv.Close()

	// Idle clients that connect and drop must not stay registered; a
	// stale subscriber would also pin the handler goroutines forever.
	for i := 0; i < 8; i++ {
		conn := dialApprovals(t, ts, srv)
		require.NoError(t, conn.Close())
	}

	assert.Eventually(t, func() bool {
		return ts.broker.SubscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond, "disconnected clients still subscribed")
}

func TestApprovalSocketRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.srv.Handler())
	defer srv.Close()

	conn := dialApprovals(t, ts, srv)
	defer conn.Close()

	type result struct {
		approved bool
		err      error
	}
	decided := make(chan result, 1)
	go func() {
		approved, err := ts.broker.Request(context.Background(), "write_file", map[string]interface{}{"path": "main.go"})
		decided <- result{approved, err}
	}()

	var env approval.Envelope
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, approval.EnvelopeTypeRequest, env.Type)
	assert.Equal(t, "write_file", env.ToolName)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       "approval-response",
		"approvalId": env.ApprovalID,
		"approved":   true,
	}))

	select {
	case res := <-decided:
		require.NoError(t, res.err)
		assert.True(t, res.approved)
	case <-time.After(2 * time.Second):
		t.Fatal("approval decision never settled")
	}
}
