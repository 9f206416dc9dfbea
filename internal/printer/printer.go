package printer

import "github.com/slok/aico/internal/model"

// Printer knows how to print task and model information in different formats.
type Printer interface {
	PrintTaskList(tasks []model.Task) error
	PrintModelList(models []model.ModelInfo) error
	PrintMessage(msg string) error
}
