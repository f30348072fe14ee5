// Package export renders a domain check as a downloadable CSV or XLSX file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/index-checker/internal/grouping"
	"github.com/jonesrussell/index-checker/internal/models"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"

	timestampLayout = "2006-01-02 15:04:05"
	filenameLayout  = "20060102_150405"
)

// utf8BOM lets spreadsheet applications detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var header = []string{"URL", "Status", "Checked At"}

// ParseFormat maps user input to a format. Anything other than xlsx is CSV.
func ParseFormat(raw string) Format {
	if strings.EqualFold(strings.TrimSpace(raw), string(FormatXLSX)) {
		return FormatXLSX
	}
	return FormatCSV
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filter keeps the URLs whose status passes f.
func Filter(urls []models.CheckedURL, f grouping.FilterStatus) []models.CheckedURL {
	out := make([]models.CheckedURL, 0, len(urls))
	for _, u := range urls {
		if f.Matches(u.Status) {
			out = append(out, u)
		}
	}
	return out
}

// Filename returns "{domain}_{filter}_{YYYYmmdd_HHMMSS}.{ext}" using now in UTC.
func Filename(domain string, f grouping.FilterStatus, now time.Time, format Format) string {
	return fmt.Sprintf("%s_%s_%s.%s", domain, f, now.UTC().Format(filenameLayout), format)
}

func row(u models.CheckedURL) []string {
	checked := ""
	if !u.CheckedAt.IsZero() {
		checked = u.CheckedAt.UTC().Format(timestampLayout)
	}
	return []string{u.URL, u.Status.Label(), checked}
}

// WriteCSV writes urls as a BOM-prefixed CSV.
func WriteCSV(w io.Writer, urls []models.CheckedURL) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, u := range urls {
		if err := cw.Write(row(u)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with the filtered urls on a Results sheet and
// the check's totals on a Summary sheet.
func WriteXLSX(w io.Writer, check *models.DomainCheck, urls []models.CheckedURL) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := setRow(f, resultsSheet, 1, header); err != nil {
		return err
	}
	for i, u := range urls {
		if err := setRow(f, resultsSheet, i+2, row(u)); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(resultsSheet, "A", "A", 80); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(resultsSheet, "B", "C", 20); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	summary := [][]any{
		{"Domain", check.Domain},
		{"Checked At", check.CreatedAt.UTC().Format(timestampLayout)},
		{"Total URLs", check.TotalURLs},
		{"Indexed", check.IndexedCount},
		{"Not Indexed", check.NotIndexedCount},
		{"Errors", check.ErrorCount},
		{"Exported Rows", len(urls)},
	}
	for i, values := range summary {
		if err := setRow(f, summarySheet, i+1, values); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow[T any](f *excelize.File, sheet string, rowNum int, values []T) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// Write renders check's URLs that pass filter in format to w.
func Write(w io.Writer, format Format, check *models.DomainCheck, filter grouping.FilterStatus) error {
	urls := Filter(check.URLs, filter)
	if format == FormatXLSX {
		return WriteXLSX(w, check, urls)
	}
	return WriteCSV(w, urls)
}
