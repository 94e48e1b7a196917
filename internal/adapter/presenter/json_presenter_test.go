package presenter_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/YoshitsuguKoike/inboxzero/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/dto"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.NewDecoder(buf).Decode(&result); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	return result
}

func TestJSONPresenter_PresentSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewJSONPresenter(buf)

	data := &dto.TriageResult{UserID: "U1", Status: dto.RunStatusCompleted, WorkflowComplete: true}
	if err := p.PresentSuccess("Triage finished", data); err != nil {
		t.Fatalf("PresentSuccess() error = %v", err)
	}

	result := decode(t, buf)
	if result["success"] != true {
		t.Errorf("Expected success=true, got %v", result["success"])
	}
	if result["message"] != "Triage finished" {
		t.Errorf("Expected message='Triage finished', got %v", result["message"])
	}
	body, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data object, got %T", result["data"])
	}
	if body["status"] != "completed" || body["workflow_complete"] != true {
		t.Errorf("unexpected data: %v", body)
	}
}

func TestJSONPresenter_PresentError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  interface{}
		wantError string
	}{
		{"plain error", errors.New("test error"), nil, "test error"},
		{
			"triage error",
			triage.ErrRunCompleted.WithDetails(map[string]interface{}{"run_id": "run-1"}),
			"RUN_COMPLETED",
			triage.ErrRunCompleted.Error(),
		},
		{"nil error", nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			p := presenter.NewJSONPresenter(buf)

			if err := p.PresentError(tt.err); err != nil {
				t.Fatalf("PresentError() error = %v", err)
			}

			result := decode(t, buf)
			if result["success"] != false {
				t.Errorf("Expected success=false, got %v", result["success"])
			}
			if result["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", result["error"], tt.wantError)
			}
			if result["code"] != tt.wantCode {
				t.Errorf("code = %v, want %v", result["code"], tt.wantCode)
			}
		})
	}
}

func TestJSONPresenter_PresentProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewJSONPresenter(buf)

	if err := p.PresentProgress("Drafting", 1, 4); err != nil {
		t.Fatalf("PresentProgress() error = %v", err)
	}

	result := decode(t, buf)
	if result["type"] != "progress" || result["progress"] != float64(1) || result["total"] != float64(4) {
		t.Errorf("unexpected progress: %v", result)
	}
}
