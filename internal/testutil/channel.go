package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
)

// Channel records approval traffic instead of delivering it
type Channel struct {
	mu sync.Mutex

	RequestErr error
	UpdateErr  error

	Requests []output.ApprovalMessage
	Updates  map[string]string
}

// NewChannel creates an empty recording channel
func NewChannel() *Channel {
	return &Channel{Updates: map[string]string{}}
}

func (c *Channel) Request(ctx context.Context, msg output.ApprovalMessage) (approval.TransportRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.RequestErr != nil {
		return approval.TransportRef{}, c.RequestErr
	}
	c.Requests = append(c.Requests, msg)
	return approval.TransportRef{Channel: "test:" + msg.UserID, MessageID: msg.ApprovalID}, nil
}

func (c *Channel) Update(ctx context.Context, ref approval.TransportRef, statusLine string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.UpdateErr != nil {
		return c.UpdateErr
	}
	c.Updates[ref.MessageID] = statusLine
	return nil
}

// RequestCount returns how many approval messages were posted
func (c *Channel) RequestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Requests)
}

// Clock is a manually advanced time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at t
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
