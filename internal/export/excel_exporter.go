// Package export renders stored extraction results as spreadsheets
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/garyjia/docextract/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	documentsSheet = "Documents"
	lineItemsSheet = "LineItems"
)

var documentHeaders = []any{
	"ID", "Source", "Invoice Number", "PO Number", "Vendor", "Invoice Date", "Due Date",
	"Subtotal", "Tax", "Total", "Line Items", "Confidence", "Requires Review",
	"Review Reasons", "Reviewed At", "Method", "Created At",
}

var lineItemHeaders = []any{
	"Document ID", "Invoice Number", "Line", "Description", "Quantity", "Unit Price", "Line Total",
}

// ExcelExporter writes document records into an xlsx workbook
type ExcelExporter struct {
	maxRows int
	logger  *zap.Logger
}

// NewExcelExporter creates an exporter. maxRows caps the Documents sheet; zero means no cap.
func NewExcelExporter(maxRows int, logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{maxRows: maxRows, logger: logger}
}

// Write renders the records and streams the workbook to w
func (ee *ExcelExporter) Write(w io.Writer, records []*models.DocumentRecord) error {
	if ee.maxRows > 0 && len(records) > ee.maxRows {
		ee.logger.Warn("Export truncated",
			zap.Int("records", len(records)),
			zap.Int("max_rows", ee.maxRows))
		records = records[:ee.maxRows]
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", documentsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(lineItemsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := ee.writeHeader(f, documentsSheet, documentHeaders, headerStyle); err != nil {
		return err
	}
	if err := ee.writeHeader(f, lineItemsSheet, lineItemHeaders, headerStyle); err != nil {
		return err
	}

	itemRow := 2
	for i, rec := range records {
		doc := rec.Document
		if doc == nil {
			continue
		}
		row := []any{
			rec.ID,
			rec.SourceName,
			doc.InvoiceNumber,
			doc.PONumber,
			doc.Vendor.Name,
			formatDate(doc.InvoiceDate),
			formatDate(doc.DueDate),
			amountCell(doc.Subtotal),
			amountCell(doc.TaxAmount),
			amountCell(doc.TotalAmount),
			len(doc.LineItems),
			doc.ConfidenceScore,
			doc.RequiresManualReview,
			strings.Join(doc.ReviewReasons, "; "),
			formatTimestamp(rec.ReviewedAt),
			doc.ExtractionMethod,
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := ee.setRow(f, documentsSheet, i+2, row); err != nil {
			return err
		}

		for _, item := range doc.LineItems {
			itemCells := []any{
				rec.ID,
				doc.InvoiceNumber,
				item.LineNumber,
				item.Description,
				amountCell(item.Quantity),
				amountCell(item.UnitPrice),
				amountCell(item.LineTotal),
			}
			if err := ee.setRow(f, lineItemsSheet, itemRow, itemCells); err != nil {
				return err
			}
			itemRow++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	ee.logger.Info("Export written",
		zap.Int("documents", len(records)),
		zap.Int("line_items", itemRow-2))
	return nil
}

func (ee *ExcelExporter) writeHeader(f *excelize.File, sheet string, headers []any, style int) error {
	if err := ee.setRow(f, sheet, 1, headers); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (ee *ExcelExporter) setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		ee.logger.Error("Failed to set row",
			zap.String("sheet", sheet),
			zap.Int("row", row),
			zap.Error(err))
		return fmt.Errorf("failed to set row %d on %s: %w", row, sheet, err)
	}
	return nil
}

// amountCell keeps spreadsheet cells numeric; absent amounts stay blank
func amountCell(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}
