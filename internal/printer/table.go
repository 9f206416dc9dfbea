package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/slok/aico/internal/model"
)

// TablePrinter prints task and model information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTaskList prints tasks in a table format.
func (t *TablePrinter) PrintTaskList(tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSTATUS\tPROGRESS\tDURATION\tFINISHED")

	// Print rows.
	for _, tk := range tasks {
		finished := "-"
		if tk.CompletedAt != nil {
			finished = TimeAgo(*tk.CompletedAt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tk.ID.Short(),
			tk.Name,
			tk.Type,
			tk.Status,
			progressCell(tk.Progress),
			FormatDuration(tk.Duration()),
			finished,
		)
	}

	return nil
}

// PrintModelList prints models in a table format.
func (t *TablePrinter) PrintModelList(models []model.ModelInfo) error {
	if len(models) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "NAME\tSIZE\tPARAMS\tQUANT\tFAMILY")

	// Print rows.
	for _, m := range models {
		size := "-"
		if m.SizeBytes > 0 {
			size = FormatBytes(m.SizeBytes)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			m.Name,
			size,
			orDash(m.ParameterSize),
			orDash(m.QuantizationLevel),
			orDash(m.Family),
		)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func progressCell(p *model.ProgressStats) string {
	if p == nil {
		return "-"
	}

	if p.CompletionPercent != nil {
		return fmt.Sprintf("%.1f%%", *p.CompletionPercent)
	}

	if p.RatePerSecond > 0 {
		return fmt.Sprintf("%d (%.1f/s)", p.UnitsDone, p.RatePerSecond)
	}

	return fmt.Sprintf("%d", p.UnitsDone)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
