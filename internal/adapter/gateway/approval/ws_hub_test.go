package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
)

func card(id, user string) output.ApprovalMessage {
	return output.ApprovalMessage{
		ApprovalID: id,
		UserID:     user,
		Draft:      approval.DraftPreview{DraftRef: "d-" + id, Recipient: "bob@example.com", Subject: "Re: Plan", Body: "Sounds good."},
		Choices:    approval.Choices(),
		ExpiresAt:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(app.Discard)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("user"))
	}))
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func TestHub_ReplayDecideResolve(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, srv := startHub(t)
	defer srv.Close()
	defer hub.Close()

	var mu sync.Mutex
	var calls []string
	hub.SetDecisionHandler(func(ctx context.Context, approvalID, decision, actor string) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, approvalID+":"+decision+":"+actor)
		return map[string]string{"status": "paused"}, nil
	})

	ref, err := hub.Request(context.Background(), card("A1", "U1"))
	require.NoError(t, err)
	assert.Equal(t, approval.TransportRef{Channel: "ws:U1", MessageID: "A1"}, ref)

	conn := dial(t, srv, "U1")
	defer conn.Close()

	replayed := readFrame(t, conn)
	assert.Equal(t, FrameApprovalRequest, replayed.Type)
	assert.Equal(t, "A1", replayed.ApprovalID)
	require.Len(t, replayed.Choices, 3)
	assert.Equal(t, Choice{ActionID: "approve_draft", Label: "Approve & Send"}, replayed.Choices[0])
	assert.Equal(t, "Re: Plan", replayed.Draft.Subject)

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameDecision, ApprovalID: "A1", Decision: "approve"}))
	result := readFrame(t, conn)
	assert.Equal(t, FrameDecisionResult, result.Type)
	assert.Equal(t, map[string]interface{}{"status": "paused"}, result.Result)

	mu.Lock()
	assert.Equal(t, []string{"A1:approve:U1"}, calls)
	mu.Unlock()

	require.NoError(t, hub.Update(context.Background(), ref, "APPROVED & SENT - original draft has been processed."))
	resolved := readFrame(t, conn)
	assert.Equal(t, FrameApprovalResolved, resolved.Type)
	assert.Contains(t, resolved.StatusLine, "APPROVED")
	assert.Empty(t, hub.Pending("U1"))

	// live cards reach connected clients directly
	_, err = hub.Request(context.Background(), card("A2", "U1"))
	require.NoError(t, err)
	live := readFrame(t, conn)
	assert.Equal(t, "A2", live.ApprovalID)
}

func TestHub_BadFrames(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, srv := startHub(t)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv, "U1")
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not-json}")))
	assert.Equal(t, FrameError, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Frame{Type: "ping"}))
	f := readFrame(t, conn)
	assert.Contains(t, f.Message, "unknown message type")

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameDecision, Decision: "approve"}))
	assert.Contains(t, readFrame(t, conn).Message, "approval_id is required")

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameDecision, ApprovalID: "A1", Decision: "approve"}))
	assert.Contains(t, readFrame(t, conn).Message, "not accepted")

	hub.SetDecisionHandler(func(ctx context.Context, approvalID, decision, actor string) (interface{}, error) {
		return nil, errors.New("[UNKNOWN_DECISION] Unknown decision")
	})
	require.NoError(t, conn.WriteJSON(Frame{Type: FrameDecision, ApprovalID: "A1", Decision: "edit"}))
	assert.Contains(t, readFrame(t, conn).Message, "UNKNOWN_DECISION")
}

func TestHub_UsersAreSeparated(t *testing.T) {
	hub := NewHub(app.Discard)
	defer hub.Close()

	_, err := hub.Request(context.Background(), card("A1", "U1"))
	require.NoError(t, err)
	_, err = hub.Request(context.Background(), card("A2", "U2"))
	require.NoError(t, err)

	require.Len(t, hub.Pending("U1"), 1)
	assert.Equal(t, "A1", hub.Pending("U1")[0].ApprovalID)
	assert.Empty(t, hub.Pending("U3"))
}

func TestHub_ClosedRejectsRequests(t *testing.T) {
	hub := NewHub(app.Discard)
	require.NoError(t, hub.Close())
	_, err := hub.Request(context.Background(), card("A1", "U1"))
	assert.Error(t, err)
}

func TestConsoleChannel(t *testing.T) {
	var buf bytes.Buffer
	ch := NewConsoleChannel(&buf)

	ref, err := ch.Request(context.Background(), card("A1", "U1"))
	require.NoError(t, err)
	assert.Equal(t, "console:U1", ref.Channel)

	out := buf.String()
	assert.Contains(t, out, "[A1]")
	assert.Contains(t, out, "Subject: Re: Plan")
	assert.Contains(t, out, "[approve] Approve & Send")
	assert.Contains(t, out, "Sounds good.")

	require.NoError(t, ch.Update(context.Background(), ref, "SAVED - original draft has been processed."))
	assert.Contains(t, buf.String(), "[A1] SAVED")
}
