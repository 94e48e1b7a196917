// Package approval delivers approval requests to a human and carries their
// decisions back
package approval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
)

// Frame types exchanged over the socket
const (
	FrameApprovalRequest  = "approval_request"
	FrameApprovalResolved = "approval_resolved"
	FrameDecision         = "decision"
	FrameDecisionResult   = "decision_result"
	FrameError            = "error"
)

// Choice is one button on an approval card
type Choice struct {
	ActionID string `json:"action_id"`
	Label    string `json:"label"`
}

// Frame is the JSON envelope for every socket message
type Frame struct {
	Type       string                 `json:"type"`
	ApprovalID string                 `json:"approval_id,omitempty"`
	Draft      *approval.DraftPreview `json:"draft,omitempty"`
	Choices    []Choice               `json:"choices,omitempty"`
	ExpiresAt  *time.Time             `json:"expires_at,omitempty"`
	StatusLine string                 `json:"status_line,omitempty"`
	Decision   string                 `json:"decision,omitempty"`
	Result     interface{}            `json:"result,omitempty"`
	Message    string                 `json:"message,omitempty"`
}

// DecisionHandler receives decisions clicked in a connected client
type DecisionHandler func(ctx context.Context, approvalID, decision, actor string) (interface{}, error)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // auth is handled at the HTTP layer
	},
}

type client struct {
	userID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

func (c *client) send(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub implements output.ApprovalChannel over websocket connections.
// Cards for a user with no live connection are kept and replayed on connect.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*client]struct{}
	pending map[string]map[string]Frame // user -> approval id -> card

	handler DecisionHandler
	logger  app.Logger
	wg      sync.WaitGroup
	closed  bool
}

var _ output.ApprovalChannel = (*Hub)(nil)

// NewHub creates an empty hub
func NewHub(logger app.Logger) *Hub {
	if logger == nil {
		logger = app.GetLogger()
	}
	return &Hub{
		clients: map[string]map[*client]struct{}{},
		pending: map[string]map[string]Frame{},
		logger:  logger,
	}
}

// SetDecisionHandler wires inbound decision frames
func (h *Hub) SetDecisionHandler(fn DecisionHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = fn
}

// Request implements output.ApprovalChannel
func (h *Hub) Request(ctx context.Context, msg output.ApprovalMessage) (approval.TransportRef, error) {
	draft := msg.Draft
	expires := msg.ExpiresAt
	frame := Frame{
		Type:       FrameApprovalRequest,
		ApprovalID: msg.ApprovalID,
		Draft:      &draft,
		ExpiresAt:  &expires,
	}
	for _, c := range msg.Choices {
		frame.Choices = append(frame.Choices, Choice{ActionID: c.ActionID(), Label: c.Label()})
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return approval.TransportRef{}, errors.New("approval hub is closed")
	}
	if h.pending[msg.UserID] == nil {
		h.pending[msg.UserID] = map[string]Frame{}
	}
	h.pending[msg.UserID][msg.ApprovalID] = frame
	targets := h.clientsFor(msg.UserID)
	h.mu.Unlock()

	h.broadcast(targets, frame)
	return approval.TransportRef{Channel: "ws:" + msg.UserID, MessageID: msg.ApprovalID}, nil
}

// Update implements output.ApprovalChannel
func (h *Hub) Update(ctx context.Context, ref approval.TransportRef, statusLine string) error {
	userID := userFromChannel(ref.Channel)

	h.mu.Lock()
	delete(h.pending[userID], ref.MessageID)
	targets := h.clientsFor(userID)
	h.mu.Unlock()

	h.broadcast(targets, Frame{Type: FrameApprovalResolved, ApprovalID: ref.MessageID, StatusLine: statusLine})
	return nil
}

// Pending returns the cards still waiting for a user, oldest expiry first
func (h *Hub) Pending(userID string) []Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Frame, 0, len(h.pending[userID]))
	for _, f := range h.pending[userID] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(*out[j].ExpiresAt) {
			return out[i].ApprovalID < out[j].ApprovalID
		}
		return out[i].ExpiresAt.Before(*out[j].ExpiresAt)
	})
	return out
}

// Serve upgrades the request and attaches the connection to userID
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade for %s failed: %v", userID, err)
		return
	}

	c := &client{userID: userID, conn: conn}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	if h.clients[userID] == nil {
		h.clients[userID] = map[*client]struct{}{}
	}
	h.clients[userID][c] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()

	for _, f := range h.Pending(userID) {
		if err := c.send(f); err != nil {
			h.logger.Warn("replaying %s to %s: %v", f.ApprovalID, userID, err)
		}
	}

	go h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer h.wg.Done()
	defer h.remove(c)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("ws read error for %s: %v", c.userID, err)
			}
			return
		}
		h.handleFrame(c, raw)
	}
}

func (h *Hub) handleFrame(c *client, raw []byte) {
	var in Frame
	if err := json.Unmarshal(raw, &in); err != nil {
		_ = c.send(Frame{Type: FrameError, Message: "invalid JSON: " + err.Error()})
		return
	}
	if in.Type != FrameDecision {
		_ = c.send(Frame{Type: FrameError, Message: "unknown message type: " + in.Type})
		return
	}
	if in.ApprovalID == "" {
		_ = c.send(Frame{Type: FrameError, Message: "approval_id is required for decision"})
		return
	}

	h.mu.Lock()
	handler := h.handler
	h.mu.Unlock()
	if handler == nil {
		_ = c.send(Frame{Type: FrameError, ApprovalID: in.ApprovalID, Message: "decisions are not accepted on this server"})
		return
	}

	result, err := handler(context.Background(), in.ApprovalID, in.Decision, c.userID)
	if err != nil {
		_ = c.send(Frame{Type: FrameError, ApprovalID: in.ApprovalID, Message: err.Error()})
		return
	}
	_ = c.send(Frame{Type: FrameDecisionResult, ApprovalID: in.ApprovalID, Result: result})
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients[c.userID], c)
	if len(h.clients[c.userID]) == 0 {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// clientsFor must be called with h.mu held
func (h *Hub) clientsFor(userID string) []*client {
	out := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		out = append(out, c)
	}
	return out
}

func (h *Hub) broadcast(targets []*client, f Frame) {
	for _, c := range targets {
		if err := c.send(f); err != nil {
			h.logger.Warn("ws send to %s failed: %v", c.userID, err)
		}
	}
}

// Close disconnects every client and waits for their read loops
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		c.conn.Close()
	}
	h.wg.Wait()
	return nil
}

func userFromChannel(channel string) string {
	const prefix = "ws:"
	if len(channel) > len(prefix) && channel[:len(prefix)] == prefix {
		return channel[len(prefix):]
	}
	return channel
}
