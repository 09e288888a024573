package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// ReportExporter renders report rows as a downloadable file.
type ReportExporter interface {
	Export(format string, rows []ReadReceiptRow) ([]byte, string, string, error)
}

type reportExporter struct {
	now func() time.Time
}

func NewReportExporter() ReportExporter {
	return &reportExporter{now: time.Now}
}

var readReceiptHeaders = []string{"Notification ID", "Title", "Type", "Priority", "Audience", "Created At", "Recipients", "Reads"}

func readReceiptRecord(row ReadReceiptRow) []string {
	return []string{
		row.NotificationID,
		row.Title,
		row.Type,
		row.Priority,
		row.TargetAudience,
		row.CreatedAt.Format("2006-01-02 15:04:05"),
		strconv.FormatInt(row.RecipientCount, 10),
		strconv.FormatInt(row.ReadCount, 10),
	}
}

// Export returns the file bytes, file name and MIME type.
func (e *reportExporter) Export(format string, rows []ReadReceiptRow) ([]byte, string, string, error) {
	timestamp := e.now().Format("20060102_150405")

	switch format {
	case FormatExcel, FormatXLSX:
		data, err := e.exportExcel(rows)
		if err != nil {
			return nil, "", "", err
		}
		filename := fmt.Sprintf("notification_read_receipts_%s.xlsx", timestamp)
		return data, filename, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil

	case FormatCSV:
		data, err := e.exportCSV(rows)
		if err != nil {
			return nil, "", "", err
		}
		filename := fmt.Sprintf("notification_read_receipts_%s.csv", timestamp)
		return data, filename, "text/csv", nil

	case FormatPDF:
		data, err := e.exportPDF(rows)
		if err != nil {
			return nil, "", "", err
		}
		filename := fmt.Sprintf("notification_read_receipts_%s.pdf", timestamp)
		return data, filename, "application/pdf", nil

	default:
		return nil, "", "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func (e *reportExporter) exportCSV(rows []ReadReceiptRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(readReceiptHeaders); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := writer.Write(readReceiptRecord(row)); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *reportExporter) exportExcel(rows []ReadReceiptRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Read Receipts"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	for i, header := range readReceiptHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, row := range rows {
		r := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", r), row.NotificationID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", r), row.Title)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", r), row.Type)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", r), row.Priority)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", r), row.TargetAudience)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", r), row.CreatedAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", r), row.RecipientCount)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", r), row.ReadCount)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *reportExporter) exportPDF(rows []ReadReceiptRow) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Notification Read Receipts")
	pdf.Ln(20)

	widths := []float64{62, 70, 25, 20, 22, 35, 20, 18}
	pdf.SetFont("Arial", "B", 9)
	for i, h := range readReceiptHeaders {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range rows {
		for i, v := range readReceiptRecord(row) {
			pdf.CellFormat(widths[i], 6, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
