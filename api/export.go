package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"finera/database"
	"finera/middleware"
	"finera/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	exportTimeLayout = "2006-01-02 15:04:05"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeaders = []string{"ID", "Date", "Type", "Category", "Amount", "Description", "Created"}

// ExportHandler ledger export
type ExportHandler struct{}

// NewExportHandler creates the export handler
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// ExportResponse JSON export body
type ExportResponse struct {
	StartDate    string                `json:"startDate"`
	EndDate      string                `json:"endDate"`
	TotalCount   int                   `json:"totalCount"`
	TotalIncome  decimal.Decimal       `json:"totalIncome" swaggertype:"number"`
	TotalExpense decimal.Decimal       `json:"totalExpense" swaggertype:"number"`
	Transactions []TransactionResponse `json:"transactions"`
}

// Export downloads the caller's transactions for a date range
// @Summary Export transactions
// @Description Export transactions between two dates (end date inclusive) as CSV, Excel or JSON
// @Tags Transactions
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce json
// @Security BearerAuth
// @Param format query string false "csv (default), xlsx or json"
// @Param start_date query string true "start date (2025-01-01)"
// @Param end_date query string true "end date (2025-01-31)"
// @Success 200 {file} file "export"
// @Failure 400 {object} Response "invalid request"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/transactions/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	startStr := c.Query("start_date")
	endStr := c.Query("end_date")
	if startStr == "" || endStr == "" {
		BadRequest(c, "start_date and end_date are required")
		return
	}

	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		BadRequest(c, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		BadRequest(c, "end_date must be YYYY-MM-DD")
		return
	}
	end = end.Add(24*time.Hour - time.Second)

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "xlsx" && format != "json" {
		BadRequest(c, "format must be csv, xlsx or json")
		return
	}

	var txs []models.Transaction
	if err := database.DB.Preload("Category").
		Where("user_id = ? AND transaction_date >= ? AND transaction_date <= ?", userID, start, end).
		Order("transaction_date DESC, created_at DESC").
		Find(&txs).Error; err != nil {
		internalError(c, err, "failed to load transactions")
		return
	}

	filename := fmt.Sprintf("transactions_%s_%s.%s", startStr, endStr, format)

	switch format {
	case "json":
		income, expense := sumByType(txs)
		list := make([]TransactionResponse, 0, len(txs))
		for _, t := range txs {
			list = append(list, newTransactionResponse(t))
		}
		Success(c, ExportResponse{
			StartDate:    startStr,
			EndDate:      endStr,
			TotalCount:   len(txs),
			TotalIncome:  income,
			TotalExpense: expense,
			Transactions: list,
		})

	case "xlsx":
		buf, err := buildXLSX(txs)
		if err != nil {
			internalError(c, err, "failed to generate Excel file")
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())

	default:
		data, err := buildCSV(txs)
		if err != nil {
			internalError(c, err, "failed to generate CSV")
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
	}
}

func exportRow(t models.Transaction) []string {
	return []string{
		fmt.Sprintf("%d", t.ID),
		t.TransactionDate.UTC().Format(exportTimeLayout),
		t.Type,
		t.Category.Name,
		t.Amount.StringFixed(2),
		t.Description,
		t.CreatedAt.UTC().Format(exportTimeLayout),
	}
}

// buildCSV writes a BOM so spreadsheet apps detect UTF-8
func buildCSV(txs []models.Transaction) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteString("\xEF\xBB\xBF")

	writer := csv.NewWriter(buf)
	if err := writer.Write(exportHeaders); err != nil {
		return nil, err
	}
	for _, t := range txs {
		if err := writer.Write(exportRow(t)); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildXLSX(txs []models.Transaction) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Transactions"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"007BFF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}
	dataStyle, err := f.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return nil, err
	}

	widths := []float64{8, 20, 10, 18, 12, 36, 20}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, err
		}
	}

	if err := f.SetSheetRow(sheet, "A1", &exportHeaders); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", headerStyle); err != nil {
		return nil, err
	}

	for i, t := range txs {
		row := i + 2
		amount, _ := t.Amount.Float64()
		values := []interface{}{
			t.ID,
			t.TransactionDate.UTC().Format(exportTimeLayout),
			t.Type,
			t.Category.Name,
			amount,
			t.Description,
			t.CreatedAt.UTC().Format(exportTimeLayout),
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), dataStyle); err != nil {
			return nil, err
		}
	}

	income, expense := sumByType(txs)
	summaryRow := len(txs) + 3
	summary := []interface{}{"Income", income.StringFixed(2), "Expense", expense.StringFixed(2)}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", summaryRow), &summary); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}
