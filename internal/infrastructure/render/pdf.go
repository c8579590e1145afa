package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/tgformat"
)

const (
	pdfFont      = "GoFont"
	pdfMargin    = 20.0
	pdfBodyWidth = 170.0
)

// PDF renders the period summary: title, mood meter, statistics table and AI analysis.
func (r *Renderer) PDF(bundle domain.ReportBundle) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddUTF8FontFromBytes(pdfFont, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(pdfFont, "B", gobold.TTF)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(bundle.PeriodEnd)
	pdf.SetModificationDate(bundle.PeriodEnd)
	pdf.SetTitle("Сводка отзывов", true)
	pdf.AddPage()

	from := bundle.PeriodStart.In(r.loc).Format("02.01.2006")
	to := bundle.PeriodEnd.In(r.loc).Format("02.01.2006")

	pdf.SetFont(pdfFont, "B", 24)
	pdf.SetTextColor(0x2c, 0x3e, 0x50)
	pdf.CellFormat(pdfBodyWidth, 14, "Сводка за 2 недели", "", 1, "C", false, 0, "")
	pdf.SetFont(pdfFont, "", 14)
	pdf.SetTextColor(0x7f, 0x8c, 0x8d)
	pdf.CellFormat(pdfBodyWidth, 10, from+" - "+to, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	stats := bundle.Stats
	if stats.Count > 0 {
		meter, err := moodMeter(stats.MeanRating)
		if err != nil {
			return nil, fmt.Errorf("mood meter: %w", err)
		}
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("mood", opts, bytes.NewReader(meter))
		pdf.ImageOptions("mood", pdfMargin+20, pdf.GetY(), 130, 0, true, opts, 0, "")
		pdf.Ln(2)
		pdf.SetFont(pdfFont, "", 14)
		pdf.CellFormat(pdfBodyWidth, 8, fmt.Sprintf("Цель - 5.0  |  Текущая оценка - %.1f", stats.MeanRating), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	heading(pdf, "Общая статистика")
	if bundle.HasData() {
		statsTable(pdf, stats, len(bundle.AllReports))
	} else {
		body(pdf, noDataText)
	}
	pdf.Ln(8)

	if summary := strings.TrimSpace(bundle.Summary); summary != "" {
		heading(pdf, "AI-анализ проблем")
		for _, para := range strings.Split(tgformat.PlainText(tgformat.FromMarkdown(summary)), "\n") {
			if strings.TrimSpace(para) != "" {
				body(pdf, para)
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont(pdfFont, "B", 16)
	pdf.SetTextColor(0x29, 0x80, 0xb9)
	pdf.CellFormat(pdfBodyWidth, 12, text, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func body(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont(pdfFont, "", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(pdfBodyWidth, 6, text, "", "L", false)
	pdf.Ln(2)
}

func statsTable(pdf *fpdf.Fpdf, stats domain.Stats, reports int) {
	rows := [][2]string{
		{"Всего отзывов", fmt.Sprint(stats.Count)},
		{"Положительных (4-5)", fmt.Sprint(stats.PositiveCount)},
		{"Нейтральных (3)", fmt.Sprint(stats.NeutralCount)},
		{"Отрицательных (1-2)", fmt.Sprint(stats.NegativeCount)},
		{"Средняя оценка", fmt.Sprintf("%.1f", stats.MeanRating)},
		{"Отчетов от сотрудников", fmt.Sprint(reports)},
	}

	pdf.SetDrawColor(0xbd, 0xc3, 0xc7)
	pdf.SetFont(pdfFont, "B", 11)
	pdf.SetFillColor(0x34, 0x98, 0xdb)
	pdf.SetTextColor(0xff, 0xff, 0xff)
	pdf.CellFormat(120, 10, "Показатель", "1", 0, "L", true, 0, "")
	pdf.CellFormat(50, 10, "Значение", "1", 1, "L", true, 0, "")

	pdf.SetFont(pdfFont, "", 11)
	pdf.SetTextColor(0, 0, 0)
	for i, row := range rows {
		if i%2 == 0 {
			pdf.SetFillColor(0xec, 0xf0, 0xf1)
		} else {
			pdf.SetFillColor(0xff, 0xff, 0xff)
		}
		pdf.CellFormat(120, 10, row[0], "1", 0, "L", true, 0, "")
		pdf.CellFormat(50, 10, row[1], "1", 1, "L", true, 0, "")
	}
}
