package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"logclassifier/internal/insights"
	"logclassifier/pkg/contracts/domain"
)

const (
	SheetResults = "Results"
	SheetSummary = "Summary"
)

// WriteXLSX writes a workbook with the classified rows and a summary sheet
// carrying a category bar chart and a source pie chart.
func WriteXLSX(out io.Writer, run *domain.Run, summary insights.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetResults); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeResults(f, run, bold); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	if err := writeSummary(f, summary, bold); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeResults(f *excelize.File, run *domain.Run, style int) error {
	if err := setRow(f, SheetResults, 1, toRow(run.Header)); err != nil {
		return err
	}
	if len(run.Header) > 0 {
		last, _ := excelize.ColumnNumberToName(len(run.Header))
		if err := f.SetCellStyle(SheetResults, "A1", last+"1", style); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
		if err := f.SetColWidth(SheetResults, "A", last, 24); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, row := range run.Rows() {
		if err := setRow(f, SheetResults, i+2, toRow(row)); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, s insights.Summary, style int) error {
	rows := [][]interface{}{
		{"Total Logs Processed", s.Total},
		{"Processing Time", s.ProcessingTime},
	}
	for i, r := range rows {
		if err := setRow(f, SheetSummary, i+1, r); err != nil {
			return err
		}
	}

	// Category table at A4, source table at D4
	catStart := 4
	if err := setRow(f, SheetSummary, catStart, []interface{}{"Category", "Count"}); err != nil {
		return err
	}
	for i, c := range s.Categories {
		if err := setRow(f, SheetSummary, catStart+1+i, []interface{}{c.Label, c.Count}); err != nil {
			return err
		}
	}
	for i, src := range s.Sources {
		cell, _ := excelize.CoordinatesToCellName(4, catStart+1+i)
		if err := f.SetSheetRow(SheetSummary, cell, &[]interface{}{src.Source, src.Count, src.Percentage}); err != nil {
			return fmt.Errorf("failed to write source row: %w", err)
		}
	}
	if err := f.SetSheetRow(SheetSummary, fmt.Sprintf("D%d", catStart), &[]interface{}{"Source", "Count", "Share"}); err != nil {
		return fmt.Errorf("failed to write source header: %w", err)
	}

	for _, span := range [][2]string{{"A1", "A2"}, {"A4", "B4"}, {"D4", "F4"}} {
		if err := f.SetCellStyle(SheetSummary, span[0], span[1], style); err != nil {
			return fmt.Errorf("failed to style summary: %w", err)
		}
	}
	if err := f.SetColWidth(SheetSummary, "A", "F", 22); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	chartRow := catStart + 2 + max(len(s.Categories), len(s.Sources))

	if n := len(s.Categories); n > 0 {
		if err := f.AddChart(SheetSummary, fmt.Sprintf("A%d", chartRow), &excelize.Chart{
			Type: excelize.Bar,
			Series: []excelize.ChartSeries{{
				Name:       fmt.Sprintf("%s!$B$%d", SheetSummary, catStart),
				Categories: fmt.Sprintf("%s!$A$%d:$A$%d", SheetSummary, catStart+1, catStart+n),
				Values:     fmt.Sprintf("%s!$B$%d:$B$%d", SheetSummary, catStart+1, catStart+n),
			}},
			Title:  []excelize.RichTextRun{{Text: "Category Distribution"}},
			Legend: excelize.ChartLegend{Position: "none"},
		}); err != nil {
			return fmt.Errorf("failed to add category chart: %w", err)
		}
	}

	if n := len(s.Sources); n > 0 {
		if err := f.AddChart(SheetSummary, fmt.Sprintf("H%d", chartRow), &excelize.Chart{
			Type: excelize.Pie,
			Series: []excelize.ChartSeries{{
				Name:       fmt.Sprintf("%s!$E$%d", SheetSummary, catStart),
				Categories: fmt.Sprintf("%s!$D$%d:$D$%d", SheetSummary, catStart+1, catStart+n),
				Values:     fmt.Sprintf("%s!$E$%d:$E$%d", SheetSummary, catStart+1, catStart+n),
			}},
			Title:    []excelize.RichTextRun{{Text: "Source System Distribution"}},
			PlotArea: excelize.ChartPlotArea{ShowPercent: true},
		}); err != nil {
			return fmt.Errorf("failed to add source chart: %w", err)
		}
	}

	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toRow(fields []string) []interface{} {
	out := make([]interface{}, len(fields))
	for i, v := range fields {
		out[i] = v
	}
	return out
}
