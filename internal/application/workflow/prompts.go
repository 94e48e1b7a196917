package workflow

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// clip normalizes s to NFC and cuts it to at most limit runes
func clip(s string, limit int) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func summaryPrompt(msgs []triage.Message, bodyLimit int) string {
	var b strings.Builder
	b.WriteString("You are an email assistant. Provide a high-level summary of the following unread emails.\n")
	b.WriteString("Focus on:\n")
	b.WriteString("1. Key themes and topics\n")
	b.WriteString("2. Urgent or important emails\n")
	b.WriteString("3. Action items required\n")
	b.WriteString("4. Senders who need responses\n\n")
	b.WriteString("Emails:\n")
	for i, m := range msgs {
		fmt.Fprintf(&b, "%d. From: %s\n", i+1, m.From)
		fmt.Fprintf(&b, "   Subject: %s\n", clip(m.Subject, 200))
		fmt.Fprintf(&b, "   Date: %s\n", formatDate(m))
		fmt.Fprintf(&b, "   Important: %t\n", m.Important)
		fmt.Fprintf(&b, "   Body: %s\n\n", clip(m.Body, bodyLimit))
	}
	b.WriteString("Provide a concise, professional summary:")
	return b.String()
}

func triagePrompt(msgs []triage.Message, bodyLimit int) string {
	var b strings.Builder
	b.WriteString("Analyze these emails and determine which ones need draft responses.\n")
	b.WriteString("Consider:\n")
	b.WriteString("1. Is this a personal email that requires a response?\n")
	b.WriteString("2. Is this from someone important (boss, client, colleague)?\n")
	b.WriteString("3. Does the email ask a question or require action?\n")
	b.WriteString("4. Is this spam or promotional content (don't respond)?\n\n")
	b.WriteString("Emails:\n")
	for _, m := range msgs {
		fmt.Fprintf(&b, "ID: %s\n", m.ID)
		fmt.Fprintf(&b, "From: %s\n", m.From)
		fmt.Fprintf(&b, "Subject: %s\n", clip(m.Subject, 200))
		fmt.Fprintf(&b, "Date: %s\n", formatDate(m))
		fmt.Fprintf(&b, "Important: %t\n", m.Important)
		fmt.Fprintf(&b, "Body: %s\n", clip(m.Body, bodyLimit))
		b.WriteString("---\n")
	}
	b.WriteString(`
Respond only with JSON in this shape:
{
  "emails_to_respond": [
    {
      "email_id": "id",
      "priority": "High/Medium/Low",
      "response_type": "Reply/Forward/New",
      "reason": "brief reason"
    }
  ]
}`)
	return b.String()
}

func draftPrompt(m triage.Message, c triage.Candidate) string {
	var b strings.Builder
	b.WriteString("You are a professional email assistant. Generate a draft response for this email.\n\n")
	b.WriteString("Original Email:\n")
	fmt.Fprintf(&b, "From: %s\n", m.From)
	fmt.Fprintf(&b, "Subject: %s\n", clip(m.Subject, 200))
	fmt.Fprintf(&b, "Body: %s\n\n", clip(m.Body, 0))
	b.WriteString("Response Requirements:\n")
	fmt.Fprintf(&b, "- Priority: %s\n", c.Priority)
	fmt.Fprintf(&b, "- Response Type: %s\n", c.ResponseType)
	fmt.Fprintf(&b, "- Reason: %s\n\n", c.Reason)
	b.WriteString("Guidelines:\n")
	b.WriteString("1. Be professional and courteous\n")
	b.WriteString("2. Address the key points from the original email\n")
	b.WriteString("3. Keep it concise but complete\n")
	b.WriteString("4. Match the tone of the original email\n")
	b.WriteString("5. Include a clear call to action if needed\n\n")
	b.WriteString("Generate the draft response body only:")
	return b.String()
}

func formatDate(m triage.Message) string {
	if m.Date.IsZero() {
		return "unknown"
	}
	return m.Date.Format("2006-01-02 15:04")
}

// replySubject prefixes "Re: " unless the subject already carries it
func replySubject(subject string) string {
	s := strings.TrimSpace(subject)
	if len(s) >= 3 && strings.EqualFold(s[:3], "re:") {
		return s
	}
	return "Re: " + s
}
