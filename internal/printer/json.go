package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/aico/internal/model"
)

// JSONPrinter prints task and model information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// taskItem represents a task in the list output (subset of fields).
type taskItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	UnitsDone   int        `json:"units_done,omitempty"`
	Percent     *float64   `json:"completion_percent,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// modelItem represents a model in the list output.
type modelItem struct {
	Name              string `json:"name"`
	SizeBytes         int64  `json:"size_bytes,omitempty"`
	ParameterSize     string `json:"parameter_size,omitempty"`
	QuantizationLevel string `json:"quantization_level,omitempty"`
	Family            string `json:"family,omitempty"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintTaskList prints tasks in JSON format with a subset of fields.
func (j *JSONPrinter) PrintTaskList(tasks []model.Task) error {
	items := make([]taskItem, len(tasks))
	for i, t := range tasks {
		item := taskItem{
			ID:        string(t.ID),
			Name:      t.Name,
			Type:      string(t.Type),
			Status:    string(t.Status),
			Error:     t.Error,
			CreatedAt: t.CreatedAt.UTC(),
		}

		if t.Progress != nil {
			item.UnitsDone = t.Progress.UnitsDone
			item.Percent = t.Progress.CompletionPercent
		}

		if t.StartedAt != nil {
			utcTime := t.StartedAt.UTC()
			item.StartedAt = &utcTime
		}

		if t.CompletedAt != nil {
			utcTime := t.CompletedAt.UTC()
			item.CompletedAt = &utcTime
		}

		items[i] = item
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintModelList prints models in JSON format.
func (j *JSONPrinter) PrintModelList(models []model.ModelInfo) error {
	items := make([]modelItem, len(models))
	for i, m := range models {
		items[i] = modelItem{
			Name:              m.Name,
			SizeBytes:         m.SizeBytes,
			ParameterSize:     m.ParameterSize,
			QuantizationLevel: m.QuantizationLevel,
			Family:            m.Family,
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
