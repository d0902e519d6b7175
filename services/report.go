package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/jung-kurt/gofpdf"
	"github.com/tealeg/xlsx"
)

// RecoveryReport is the admin view of recovery performance.
type RecoveryReport struct {
	RecoveryStats
	Days         int     `json:"days"`
	TotalCarts   int64   `json:"total_carts"`
	RecoveryRate float64 `json:"recovery_rate"`
	ClickRate    float64 `json:"click_rate"`
}

type ReportService struct {
	store ReportStore
	now   func() time.Time
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

// Build aggregates carts created in the last days days. The recovery rate is
// recovered carts over carts that ever reached abandoned.
func (s *ReportService) Build(ctx context.Context, days int) (*RecoveryReport, error) {
	if days <= 0 || days > 365 {
		return nil, utils.BadRequestError("days must be between 1 and 365", nil)
	}

	since := s.now().UTC().AddDate(0, 0, -days)
	stats, err := s.store.RecoveryStats(ctx, since)
	if err != nil {
		return nil, utils.InternalError("Failed to build recovery report", err)
	}

	report := &RecoveryReport{RecoveryStats: *stats, Days: days}
	for _, n := range stats.StatusCounts {
		report.TotalCarts += n
	}
	recovered := stats.StatusCounts[models.RecoveryStatusRecovered]
	reached := recovered +
		stats.StatusCounts[models.RecoveryStatusAbandoned] +
		stats.StatusCounts[models.RecoveryStatusExpired]
	if reached > 0 {
		report.RecoveryRate = float64(recovered) / float64(reached)
	}
	if stats.EmailsSent > 0 {
		report.ClickRate = float64(stats.Clicks) / float64(stats.EmailsSent)
	}
	return report, nil
}

func (r *RecoveryReport) rows() [][2]string {
	return [][2]string{
		{"Period", fmt.Sprintf("Last %d days (since %s)", r.Days, r.Since.Format("2006-01-02"))},
		{"Total carts", fmt.Sprintf("%d", r.TotalCarts)},
		{"Active", fmt.Sprintf("%d", r.StatusCounts[models.RecoveryStatusActive])},
		{"Abandoned", fmt.Sprintf("%d", r.StatusCounts[models.RecoveryStatusAbandoned])},
		{"Recovered", fmt.Sprintf("%d", r.StatusCounts[models.RecoveryStatusRecovered])},
		{"Expired", fmt.Sprintf("%d", r.StatusCounts[models.RecoveryStatusExpired])},
		{"Reminder emails sent", fmt.Sprintf("%d", r.EmailsSent)},
		{"Reminder emails failed", fmt.Sprintf("%d", r.EmailsFailed)},
		{"Reminder clicks", fmt.Sprintf("%d", r.Clicks)},
		{"Recovered value", "$" + r.RecoveredValue.StringFixed(2)},
		{"Recovery rate", fmt.Sprintf("%.1f%%", r.RecoveryRate*100)},
		{"Click rate", fmt.Sprintf("%.1f%%", r.ClickRate*100)},
	}
}

// Excel renders the report as an xlsx workbook.
func (r *RecoveryReport) Excel() ([]byte, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Cart Recovery")
	if err != nil {
		return nil, err
	}

	header := sheet.AddRow()
	for _, h := range []string{"Metric", "Value"} {
		cell := header.AddCell()
		cell.SetString(h)
		style := xlsx.NewStyle()
		font := xlsx.DefaultFont()
		font.Bold = true
		style.Font = *font
		cell.SetStyle(style)
	}
	for _, data := range r.rows() {
		row := sheet.AddRow()
		row.AddCell().SetString(data[0])
		row.AddCell().SetString(data[1])
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PDF renders the report as a one-page summary.
func (r *RecoveryReport) PDF() ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, utils.AppName+" - Cart Recovery Report")
	pdf.Ln(14)

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(80, 9, "Metric", "1", 0, "C", true, 0, "")
	pdf.CellFormat(80, 9, "Value", "1", 0, "C", true, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	fill := false
	for _, data := range r.rows() {
		pdf.SetFillColor(245, 245, 245)
		pdf.CellFormat(80, 8, data[0], "1", 0, "L", fill, 0, "")
		pdf.CellFormat(80, 8, data[1], "1", 0, "R", fill, 0, "")
		pdf.Ln(-1)
		fill = !fill
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
