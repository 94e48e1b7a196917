package approval

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
)

// ConsoleChannel prints approval cards to a writer. Decisions come back
// through the CLI decide/callback commands.
type ConsoleChannel struct {
	mu  sync.Mutex
	out io.Writer
}

var _ output.ApprovalChannel = (*ConsoleChannel)(nil)

// NewConsoleChannel creates a console channel writing to out
func NewConsoleChannel(out io.Writer) *ConsoleChannel {
	return &ConsoleChannel{out: out}
}

// Request implements output.ApprovalChannel
func (c *ConsoleChannel) Request(ctx context.Context, msg output.ApprovalMessage) (approval.TransportRef, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n📧 Draft awaiting approval [%s]\n", msg.ApprovalID)
	fmt.Fprintf(&b, "To:      %s\n", msg.Draft.Recipient)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Draft.Subject)
	b.WriteString("\n")
	for _, line := range strings.Split(strings.TrimSpace(msg.Draft.Body), "\n") {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	b.WriteString("\n")
	labels := make([]string, 0, len(msg.Choices))
	for _, d := range msg.Choices {
		labels = append(labels, fmt.Sprintf("[%s] %s", d, d.Label()))
	}
	fmt.Fprintf(&b, "Choices: %s\n", strings.Join(labels, "  "))
	fmt.Fprintf(&b, "Expires: %s\n", msg.ExpiresAt.Format("2006-01-02 15:04 MST"))

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.out, b.String()); err != nil {
		return approval.TransportRef{}, err
	}
	return approval.TransportRef{Channel: "console:" + msg.UserID, MessageID: msg.ApprovalID}, nil
}

// Update implements output.ApprovalChannel
func (c *ConsoleChannel) Update(ctx context.Context, ref approval.TransportRef, statusLine string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] %s\n", ref.MessageID, statusLine)
	return err
}
