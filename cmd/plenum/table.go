package main

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/progress"
	"github.com/mwidera/plenum/internal/workflow"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

const titleColumnWidth = 48

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderCatalogTable lists discovered sessions with their stored status.
func renderCatalogTable(items []catalog.Item, snapshot map[string]progress.Record) string {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		status := string(progress.StatusPending)
		if rec, ok := snapshot[item.Identifier]; ok {
			status = string(rec.Status)
			if rec.Status == progress.StatusFailed {
				status += " (" + strconv.Itoa(rec.AttemptCount) + ")"
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.TitleDisplay(titleColumnWidth),
			item.PublishedDisplay(),
			strconv.Itoa(item.Views),
			status,
		})
	}
	return renderTable(
		[]string{"#", "Title", "Date", "Views", "Status"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

// renderStatsTable summarizes an orchestrator run.
func renderStatsTable(stats workflow.Stats) string {
	rows := [][]string{
		{"Selected", strconv.Itoa(stats.Selected)},
		{"Completed", strconv.Itoa(stats.Completed)},
		{"Failed", strconv.Itoa(stats.Failed)},
		{"Skipped", strconv.Itoa(stats.Skipped)},
		{"Exhausted", strconv.Itoa(stats.Exhausted)},
		{"Elapsed", stats.Elapsed.Round(time.Second).String()},
	}
	return renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}
