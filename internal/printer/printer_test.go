package printer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/aico/internal/model"
	"github.com/slok/aico/internal/printer"
)

func taskFixture() model.Task {
	createdAt := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	startedAt := createdAt.Add(100 * time.Millisecond)
	completedAt := startedAt.Add(12300 * time.Millisecond)
	percent := 100.0

	return model.Task{
		ID:          "01JQ3V5T8KXN2M4P6R8T0VWXYZ",
		Name:        "AI: explain goroutines",
		Type:        model.TaskTypeGeneration,
		Status:      model.TaskStatusCompleted,
		CreatedAt:   createdAt,
		StartedAt:   &startedAt,
		CompletedAt: &completedAt,
		Progress: &model.ProgressStats{
			UnitsDone:         245,
			StartedAt:         startedAt,
			LastUpdateAt:      completedAt,
			RatePerSecond:     19.9,
			CompletionPercent: &percent,
		},
	}
}

func modelFixture() model.ModelInfo {
	return model.ModelInfo{
		Name:              "qwen2.5-coder",
		SizeBytes:         4 * 1024 * 1024 * 1024,
		ParameterSize:     "7B",
		QuantizationLevel: "Q4_K_M",
		Family:            "qwen2",
	}
}

func TestTablePrinterPrintTaskList(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintTaskList([]model.Task{taskFixture()})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "8T0VWXYZ")
	assert.Contains(t, out, "AI: explain goroutines")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "12.3s")
	assert.Contains(t, out, "ago (UTC)")
}

func TestTablePrinterPrintTaskListEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintTaskList(nil)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestTablePrinterPrintModelList(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintModelList([]model.ModelInfo{modelFixture(), {Name: "bare-model"}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "qwen2.5-coder")
	assert.Contains(t, out, "4.0 GB")
	assert.Contains(t, out, "Q4_K_M")
	assert.Contains(t, out, "bare-model")
}

func TestJSONPrinterPrintTaskList(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintTaskList([]model.Task{taskFixture()})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"id": "01JQ3V5T8KXN2M4P6R8T0VWXYZ"`)
	assert.Contains(t, out, `"status": "completed"`)
	assert.Contains(t, out, `"units_done": 245`)
	assert.Contains(t, out, `"completion_percent": 100`)
}

func TestJSONPrinterPrintModelList(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintModelList([]model.ModelInfo{modelFixture()})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"name": "qwen2.5-coder"`)
	assert.Contains(t, out, `"parameter_size": "7B"`)
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}
