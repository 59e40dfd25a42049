package artifact

import (
	"fmt"
	"io"
	"time"

	"github.com/dgallion1/docquiz/internal/quiz"
	"github.com/go-pdf/fpdf"
)

// Sheet is the content of a printable quiz.
type Sheet struct {
	Title     string
	Generated time.Time
	Set       quiz.Set
}

// WritePDF renders the questions followed by an answer key on a new page.
func WritePDF(w io.Writer, sheet Sheet) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(sheet.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, tr(sheet.Title), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	date := sheet.Generated
	if date.IsZero() {
		date = time.Now()
	}
	pdf.CellFormat(0, 6,
		fmt.Sprintf("%d questions | Generated %s", len(sheet.Set.Questions), date.Format("2006-01-02")),
		"", 1, "C", false, 0, "")
	pdf.Ln(4)

	for i, q := range sheet.Set.Questions {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, q.Prompt)), "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
		for j, o := range q.Options {
			pdf.CellFormat(8, 6, "", "", 0, "L", false, 0, "")
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("%s. %s", quiz.Letter(j), o.Text)), "", "L", false)
		}
		pdf.Ln(3)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Answer Key", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(15, 7, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 7, "Answer", "1", 0, "C", false, 0, "")
	pdf.CellFormat(0, 7, "Text", "1", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for i, q := range sheet.Set.Questions {
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, q.AnswerLetter(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(0, 7, tr(q.CorrectAnswer), "1", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
