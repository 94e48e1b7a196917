package presenter

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// JSONPresenter implements output.Presenter with one JSON document per call
type JSONPresenter struct {
	enc *json.Encoder
}

// NewJSONPresenter creates a new JSON presenter
func NewJSONPresenter(output io.Writer) output.Presenter {
	enc := json.NewEncoder(output)
	enc.SetIndent("", "  ")
	return &JSONPresenter{enc: enc}
}

// PresentSuccess presents a successful result as JSON
func (p *JSONPresenter) PresentSuccess(message string, data interface{}) error {
	return p.enc.Encode(map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// PresentError presents an error as JSON, with code and details for triage errors
func (p *JSONPresenter) PresentError(err error) error {
	result := map[string]interface{}{
		"success": false,
		"error":   "",
	}
	if err != nil {
		result["error"] = err.Error()
	}
	var te triage.Error
	if errors.As(err, &te) {
		result["code"] = te.Code
		if len(te.Details) > 0 {
			result["details"] = te.Details
		}
	}
	return p.enc.Encode(result)
}

// PresentProgress presents progress information as JSON
func (p *JSONPresenter) PresentProgress(message string, progress int, total int) error {
	return p.enc.Encode(map[string]interface{}{
		"type":     "progress",
		"message":  message,
		"progress": progress,
		"total":    total,
	})
}
