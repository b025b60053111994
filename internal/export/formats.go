package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/jgoulah/gridhours/internal/apperr"
	"github.com/jgoulah/gridhours/pkg/models"
)

// Format is an extra output format for a run.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a configured format name to a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatJSON, FormatXLSX, FormatPDF:
		return f, nil
	default:
		return "", apperr.NewConfigError(fmt.Sprintf("unsupported export format %q", s), nil)
	}
}

// Write exports run to path in the given format.
func Write(format Format, path string, run *models.Run) error {
	var write func(io.Writer, *models.Run) error
	switch format {
	case FormatJSON:
		write = WriteJSON
	case FormatXLSX:
		write = WriteXLSX
	case FormatPDF:
		write = WritePDF
	default:
		return apperr.NewConfigError(fmt.Sprintf("unsupported export format %q", format), nil)
	}
	return writeFile(path, func(w io.Writer) error { return write(w, run) })
}

// WriteJSON writes the run, including its hourly rows, as indented JSON.
func WriteJSON(w io.Writer, run *models.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}
	return nil
}

const (
	summarySheet = "Summary"
	hoursSheet   = "Hours"
)

// WriteXLSX writes a workbook with a run summary sheet and an hourly sheet.
func WriteXLSX(w io.Writer, run *models.Run) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(hoursSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	var peakHour any = "none"
	if run.HasPeak() {
		peakHour = run.MaxFeedinHour
	}
	summary := [][]any{
		{"Run", run.ID},
		{"Data file", run.DataFile},
		{"Started", run.StartedAt.Format("2006-01-02 15:04:05")},
		{"Rows loaded", run.RowsLoaded},
		{"Rows dropped", run.RowsDropped},
		{"Rows deduplicated", run.RowsDeduplicated},
		{"Max feed-in hour", peakHour},
		{"Max feed-in", run.MaxFeedin},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return fmt.Errorf("writing summary row: %w", err)
		}
	}

	header := []any{ColumnHour, ColumnGridPurchase, ColumnGridFeedin, ColumnIsMaxFeedin}
	if err := f.SetSheetRow(hoursSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, h := range run.Hours {
		row := []any{h.Hour, h.GridPurchase, h.GridFeedin, h.IsMaxFeedinHour}
		if err := f.SetSheetRow(hoursSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("writing hour %d: %w", h.Hour, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// WritePDF writes a one-page report of the run with the hourly table.
func WritePDF(w io.Writer, run *models.Run) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Grid usage by hour")
	pdf.Ln(12)

	peak := "Peak feed-in: none"
	if run.HasPeak() {
		peak = fmt.Sprintf("Peak feed-in: hour %d (%.2f)", run.MaxFeedinHour, run.MaxFeedin)
	}
	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{
		fmt.Sprintf("Run: %s", run.ID),
		fmt.Sprintf("Data file: %s", run.DataFile),
		fmt.Sprintf("Rows loaded: %s", humanize.Comma(int64(run.RowsLoaded))),
		peak,
	} {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	widths := []float64{25, 45, 45, 45}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Hour", "Grid purchase", "Grid feed-in", "Peak"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	for _, h := range run.Hours {
		pdf.SetFont("Arial", "", 10)
		peak := ""
		if h.IsMaxFeedinHour {
			pdf.SetFont("Arial", "B", 10)
			peak = "yes"
		}
		pdf.CellFormat(widths[0], 6, fmt.Sprintf("%02d:00", h.Hour), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%.3f", h.GridPurchase), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%.3f", h.GridFeedin), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, peak, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
