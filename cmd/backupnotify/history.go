package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/Fullex26/backupnotify/pkg/models"
)

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func outcomeColors(o models.Outcome) text.Colors {
	switch o {
	case models.OutcomeSuccess:
		return text.Colors{text.FgGreen}
	case models.OutcomeWarning:
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{text.FgRed}
	}
}

func renderHistory(deliveries []models.Delivery, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"When", "Notifier", "Job", "Outcome", "Result"})

	for _, d := range deliveries {
		outcome := d.Outcome.String()
		if colorize {
			outcome = outcomeColors(d.Outcome).Sprint(outcome)
		}
		result := "sent"
		if d.Failed() {
			result = d.Error
		}
		tw.AppendRow(table.Row{
			humanize.Time(d.Timestamp),
			d.Notifier,
			fmt.Sprintf("%s (%s)", d.Label, d.Trigger),
			outcome,
			result,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 60},
	})
	return tw.Render()
}
