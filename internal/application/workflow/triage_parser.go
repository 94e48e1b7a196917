package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

type triageResponse struct {
	EmailsToRespond []struct {
		EmailID      string `json:"email_id"`
		Priority     string `json:"priority"`
		ResponseType string `json:"response_type"`
		Reason       string `json:"reason"`
	} `json:"emails_to_respond"`
}

// ParseTriageResponse decodes the classifier output into candidates.
// Markdown code fences around the JSON are tolerated. Entries without an
// email id, or duplicating an earlier id, are dropped.
func ParseTriageResponse(raw string) ([]triage.Candidate, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, fmt.Errorf("empty triage response")
	}

	var resp triageResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("decode triage response: %w", err)
	}

	seen := map[string]bool{}
	out := make([]triage.Candidate, 0, len(resp.EmailsToRespond))
	for _, e := range resp.EmailsToRespond {
		id := strings.TrimSpace(e.EmailID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		responseType := strings.TrimSpace(e.ResponseType)
		if responseType == "" {
			responseType = "Reply"
		}
		out = append(out, triage.Candidate{
			MessageRef:   id,
			Priority:     triage.ParsePriority(e.Priority),
			ResponseType: responseType,
			Reason:       strings.TrimSpace(e.Reason),
		})
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop a language tag such as ```json
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
