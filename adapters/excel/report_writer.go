// Package excel exports an entity's report as an xlsx workbook.
package excel

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"factorlens/domain/core"
	apperrors "factorlens/internal/errors"
	"factorlens/internal/report"
)

// ReportWriter renders report input into a multi-sheet workbook: one sheet
// per populated section.
type ReportWriter struct{}

// NewReportWriter creates a writer.
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// Write streams the workbook to w.
func (rw *ReportWriter) Write(w io.Writer, in report.Input) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writePatternSheet(f, in); err != nil {
		return err
	}
	if in.Patterns != nil {
		if err := writeEmployeeSheet(f, in); err != nil {
			return err
		}
		if err := writeMenuSheet(f, in); err != nil {
			return err
		}
	}
	if in.Forecast != nil {
		if err := writeForecastSheet(f, in); err != nil {
			return err
		}
	}

	// The default Sheet1 only survives if it was renamed into use.
	if idx, err := f.GetSheetIndex("Sheet1"); err == nil && idx >= 0 {
		f.DeleteSheet("Sheet1")
	}
	if err := f.Write(w); err != nil {
		return apperrors.Wrap(err, "write workbook")
	}
	return nil
}

func writePatternSheet(f *excelize.File, in report.Input) error {
	const sheet = "Factor Patterns"
	if _, err := f.NewSheet(sheet); err != nil {
		return apperrors.Wrap(err, "create sheet")
	}
	headers := []string{"Factor Shape", "Type", "Scope", "Impact %", "Coefficient", "Strength", "Confidence", "Accuracy %", "Trials", "Samples", "Active"}
	if err := setRow(f, sheet, 1, toAny(headers)); err != nil {
		return err
	}
	for i, c := range in.Correlations {
		row := []any{
			c.FactorShape, string(c.FactorType), string(c.Scope),
			round2(c.OutcomeChangePct), round4(c.Coefficient), c.Strength(),
			round2(c.Confidence), round2(c.AccuracyPct), c.Trials(), c.SampleSize, c.IsActive,
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeEmployeeSheet(f *excelize.File, in report.Input) error {
	const sheet = "Staff"
	if _, err := f.NewSheet(sheet); err != nil {
		return apperrors.Wrap(err, "create sheet")
	}
	headers := []string{"Employee", "Rating", "Revenue Per Shift", "Avg Ticket", "Shifts", "Recommendation"}
	if err := setRow(f, sheet, 1, toAny(headers)); err != nil {
		return err
	}
	for i, e := range in.Patterns.Employees {
		row := []any{e.EmployeeID, e.Rating, round2(e.RevenuePerShift), round2(e.AvgTicket), e.Shifts, e.Recommendation}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeMenuSheet(f *excelize.File, in report.Input) error {
	const sheet = "Menu"
	if _, err := f.NewSheet(sheet); err != nil {
		return apperrors.Wrap(err, "create sheet")
	}
	headers := []string{"Kind", "Items", "Occurrences", "Attach Rate %", "Recommendation"}
	if err := setRow(f, sheet, 1, toAny(headers)); err != nil {
		return err
	}
	for i, m := range in.Patterns.Menu {
		row := []any{m.Kind, strings.Join(m.Items, " + "), m.Occurrences, round2(m.AttachRatePct), m.Recommendation}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeForecastSheet(f *excelize.File, in report.Input) error {
	const sheet = "Forecast"
	if _, err := f.NewSheet(sheet); err != nil {
		return apperrors.Wrap(err, "create sheet")
	}
	fc := in.Forecast
	summary := [][]any{
		{"Target Date", fc.TargetDate.Format(core.DateLayout)},
		{"Baseline", round2(fc.Baseline)},
		{"Forecast Low", round2(fc.Low)},
		{"Forecast Mid", round2(fc.Mid)},
		{"Forecast High", round2(fc.High)},
		{"Confidence", round2(fc.Confidence)},
		{"Baseline Only", fc.BaselineOnly},
	}
	for i, row := range summary {
		if err := setRow(f, sheet, i+1, row); err != nil {
			return err
		}
	}
	headerRow := len(summary) + 2
	headers := []string{"Factor Shape", "Type", "Adjustment %", "Contribution", "Description"}
	if err := setRow(f, sheet, headerRow, toAny(headers)); err != nil {
		return err
	}
	for i, af := range fc.AppliedFactors {
		row := []any{af.FactorShape, string(af.FactorType), round2(af.Adjustment), round2(af.Contribution), af.Description}
		if err := setRow(f, sheet, headerRow+1+i, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowIdx int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowIdx)
		if err != nil {
			return apperrors.Wrap(err, "cell coordinates")
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return apperrors.Wrap(err, fmt.Sprintf("set cell %s", cell))
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
