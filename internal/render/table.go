package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vyrodovalexey/avabackoff/internal/backoff"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("197")).Bold(true)
)

// Table writes the schedule as a table. Min and max columns appear only when
// jitter is active.
func Table(w io.Writer, points []backoff.RetryPoint, jitter backoff.Jitter, f *Formatter) error {
	jittered := backoff.ResolveJitter(jitter) != backoff.JitterNone

	headers := []string{"Retry", "Raw", "Delay"}
	if jittered {
		headers = append(headers, "Min", "Max")
	}
	headers = append(headers, "Cumulative")
	if jittered {
		headers = append(headers, "Cumulative range")
	}

	rows := make([][]string, 0, len(points))
	for _, p := range points {
		row := []string{strconv.Itoa(p.Retry), f.FormatMs(p.RawDelayMs), f.FormatMs(p.DelayMs)}
		if jittered {
			row = append(row, f.FormatMs(p.MinDelayMs), f.FormatMs(p.MaxDelayMs))
		}
		row = append(row, f.FormatMs(p.CumulativeDelayMs))
		if jittered {
			row = append(row, f.FormatMs(p.CumulativeMinDelayMs)+" – "+f.FormatMs(p.CumulativeMaxDelayMs))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Summary writes the schedule summary.
func Summary(w io.Writer, s backoff.ScheduleSummary, f *Formatter) error {
	_, err := fmt.Fprintf(w, "%s %d\n%s %s\n%s %s\n",
		labelStyle.Render("Retries:"), s.TotalRetries,
		labelStyle.Render("Final delay:"), f.FormatMs(s.FinalDelayMs),
		labelStyle.Render("Total delay:"), f.FormatMs(s.TotalDelayMs),
	)
	return err
}

// ValidationErrors writes one line per field error.
func ValidationErrors(w io.Writer, errs backoff.ValidationErrors) error {
	for _, e := range errs {
		if _, err := fmt.Fprintf(w, "%s %s\n", errorStyle.Render(e.Field+":"), e.Message); err != nil {
			return err
		}
	}
	return nil
}
