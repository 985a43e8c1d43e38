// Package reports builds the admin delivery report over the delivery log.
package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"footballhub/internal/models"
	"footballhub/internal/repositories"
)

type Summary struct {
	Since       time.Time            `json:"since"`
	GeneratedAt time.Time            `json:"generatedAt"`
	Stats       []models.ChannelStat `json:"stats"`
	Sent        int                  `json:"sent"`
	Failed      int                  `json:"failed"`
	SuccessRate float64              `json:"successRate"`
}

type Service struct {
	Log      repositories.DeliveryLog
	FontPath string // TTF для не-латиницы; пусто: встроенный Helvetica
	Now      func() time.Time
}

func NewService(log repositories.DeliveryLog, fontPath string) *Service {
	return &Service{Log: log, FontPath: fontPath, Now: time.Now}
}

func (s *Service) Summary(ctx context.Context, since time.Time) (*Summary, error) {
	stats, err := s.Log.Summary(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("report summary: %w", err)
	}
	sum := &Summary{Since: since, GeneratedAt: s.Now(), Stats: stats}
	for _, st := range stats {
		sum.Sent += st.Sent
		sum.Failed += st.Failed
	}
	if total := sum.Sent + sum.Failed; total > 0 {
		sum.SuccessRate = float64(sum.Sent) / float64(total)
	}
	if sum.Stats == nil {
		sum.Stats = []models.ChannelStat{}
	}
	return sum, nil
}

// RenderPDF пишет отчёт в w.
func (s *Service) RenderPDF(w io.Writer, sum *Summary) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("OTP delivery report", false)
	pdf.SetAuthor("footballhub", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	font := "Helvetica"
	if s.FontPath != "" {
		font = "DejaVu"
		pdf.AddUTF8Font(font, "", s.FontPath)
		pdf.AddUTF8Font(font, "B", s.FontPath)
	}
	pdf.AddPage()

	// ===== Заголовок
	pdf.SetFont(font, "B", 18)
	pdf.CellFormat(0, 10, "OTP DELIVERY REPORT", "", 1, "C", false, 0, "")
	pdf.SetFont(font, "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("%s - %s",
		sum.Since.Format("02.01.2006 15:04"), sum.GeneratedAt.Format("02.01.2006 15:04")), "", 1, "C", false, 0, "")
	hr(pdf)

	// ===== Итого
	sectionTitle(pdf, font, "Totals")
	kvLine(pdf, font, "Delivered", fmt.Sprintf("%d", sum.Sent))
	kvLine(pdf, font, "Failed", fmt.Sprintf("%d", sum.Failed))
	kvLine(pdf, font, "Success rate", fmt.Sprintf("%.1f%%", sum.SuccessRate*100))
	pdf.Ln(4)

	// ===== По провайдерам
	sectionTitle(pdf, font, "By provider")
	widths := []float64{40, 60, 35, 35}
	pdf.SetFont(font, "B", 11)
	for i, h := range []string{"Channel", "Provider", "Delivered", "Failed"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont(font, "", 11)
	if len(sum.Stats) == 0 {
		pdf.CellFormat(170, 7, "no deliveries in this period", "1", 1, "C", false, 0, "")
	}
	for _, st := range sum.Stats {
		pdf.CellFormat(widths[0], 7, string(st.Channel), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, st.Provider, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, fmt.Sprintf("%d", st.Sent), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, fmt.Sprintf("%d", st.Failed), "1", 1, "R", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return pdf.Output(w)
}

func sectionTitle(pdf *gofpdf.Fpdf, font, s string) {
	pdf.SetFont(font, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(font, "", 11)
}

func kvLine(pdf *gofpdf.Fpdf, font, key, val string) {
	pdf.SetFont(font, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(font, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}
