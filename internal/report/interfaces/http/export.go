package reporthttp

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"presence-ledger/internal/observability/metrics"
	presence "presence-ledger/internal/presence/domain"
	report "presence-ledger/internal/report/application"
)

// utf8BOM keeps accented display names readable when the CSV lands in Excel.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportHandler serves the per-subject activity export in csv, xlsx or pdf.
type ExportHandler struct {
	service *report.ReportService
	format  string
	logger  *log.Logger
}

// NewExportHandler constructs an ExportHandler for one format.
func NewExportHandler(service *report.ReportService, format string, logger *log.Logger) (*ExportHandler, error) {
	if service == nil {
		return nil, errors.New("report: nil service")
	}
	switch format {
	case "csv", "xlsx", "pdf":
	default:
		return nil, fmt.Errorf("report: unsupported export format %q", format)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExportHandler{service: service, format: format, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/exports/presence.{csv,xlsx,pdf}.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scopeID := r.URL.Query().Get("scope_id")
	if scopeID == "" {
		http.Error(w, "scope_id is required", http.StatusBadRequest)
		return
	}
	days := intQuery(r, "days", 0)

	rows, err := h.service.Export(r.Context(), scopeID, days)
	if err != nil {
		h.logger.Printf("export: %v", err)
		http.Error(w, "export query error", http.StatusInternalServerError)
		return
	}

	switch h.format {
	case "csv":
		h.writeCSV(w, rows)
	case "xlsx":
		payload, err := BuildActivityXLSX(scopeID, rows)
		if err != nil {
			h.logger.Printf("export xlsx: %v", err)
			http.Error(w, "export build error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="presence.xlsx"`)
		_, _ = w.Write(payload)
	case "pdf":
		payload, err := BuildActivityPDF(scopeID, rows, time.Now().UTC())
		if err != nil {
			h.logger.Printf("export pdf: %v", err)
			http.Error(w, "export build error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="presence.pdf"`)
		_, _ = w.Write(payload)
	}
	metrics.IncExport(h.format)
}

func (h *ExportHandler) writeCSV(w http.ResponseWriter, rows []report.SubjectActivity) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="presence.csv"`)
	_, _ = w.Write(utf8BOM)

	writer := csv.NewWriter(w)
	_ = writer.Write(csvHeader())
	for _, row := range rows {
		_ = writer.Write(csvRecord(row))
	}
	writer.Flush()
}

func csvHeader() []string {
	header := []string{"subject_id", "display_name"}
	for _, status := range presence.AllStatuses() {
		header = append(header, string(status))
	}
	return append(header, "total")
}

func csvRecord(row report.SubjectActivity) []string {
	record := []string{row.SubjectID, row.DisplayName}
	for _, status := range presence.AllStatuses() {
		record = append(record, strconv.Itoa(row.Counts[status]))
	}
	return append(record, strconv.Itoa(row.Total))
}

// BuildActivityXLSX renders the per-subject activity workbook.
func BuildActivityXLSX(scopeID string, rows []report.SubjectActivity) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "activity"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Presence Activity")
	_ = f.SetCellValue(sheet, "A2", "Scope")
	_ = f.SetCellValue(sheet, "B2", scopeID)

	headerRow := 4
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", headerRow), "Subject")
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", headerRow), "Display Name")
	statuses := presence.AllStatuses()
	for i, status := range statuses {
		cell, _ := excelize.CoordinatesToCellName(3+i, headerRow)
		_ = f.SetCellValue(sheet, cell, string(status))
	}
	totalCol := 3 + len(statuses)
	cell, _ := excelize.CoordinatesToCellName(totalCol, headerRow)
	_ = f.SetCellValue(sheet, cell, "Total")

	for i, row := range rows {
		rowNum := headerRow + 1 + i
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNum), row.SubjectID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNum), row.DisplayName)
		for j, status := range statuses {
			cell, _ := excelize.CoordinatesToCellName(3+j, rowNum)
			_ = f.SetCellValue(sheet, cell, row.Counts[status])
		}
		cell, _ := excelize.CoordinatesToCellName(totalCol, rowNum)
		_ = f.SetCellValue(sheet, cell, row.Total)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildActivityPDF renders a minimal PDF of the per-subject activity table.
func BuildActivityPDF(scopeID string, rows []report.SubjectActivity, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Presence Activity")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Scope: %s", scopeID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	statuses := presence.AllStatuses()
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Subject", "1", 0, "C", false, 0, "")
	for _, status := range statuses {
		pdf.CellFormat(25, 6, string(status), "1", 0, "C", false, 0, "")
	}
	pdf.CellFormat(25, 6, "Total", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		label := row.SubjectID
		if row.DisplayName != "" {
			label = row.DisplayName
		}
		pdf.CellFormat(60, 6, label, "1", 0, "L", false, 0, "")
		for _, status := range statuses {
			pdf.CellFormat(25, 6, strconv.Itoa(row.Counts[status]), "1", 0, "R", false, 0, "")
		}
		pdf.CellFormat(25, 6, strconv.Itoa(row.Total), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
