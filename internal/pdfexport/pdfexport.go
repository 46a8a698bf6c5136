// Package pdfexport renders application packs to A4 PDF with fpdf and
// verifies the result with pdfcpu. The page count feeds the hard one-page
// check on export.
package pdfexport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Document is the renderable content of one application pack.
type Document struct {
	Name        string
	Email       string
	Phone       string
	Location    string
	RoleTitle   string
	Company     string
	Summary     string
	Bullets     []string
	Skills      []string
	CoverLetter string
}

// Render produces an A4 portrait PDF of the pack.
func Render(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	// Core fonts are cp1252; the translator keeps smart quotes and accents
	// from turning into mojibake.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	name := doc.Name
	if name == "" {
		name = "Candidate"
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr(name), "", 1, "L", false, 0, "")

	if contact := joinNonEmpty(" | ", doc.Email, doc.Phone, doc.Location); contact != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, 5, tr(contact), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	if doc.RoleTitle != "" || doc.Company != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, tr("Application: "+joinNonEmpty(" at ", doc.RoleTitle, doc.Company)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	section(pdf, "Summary")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(doc.Summary), "", "L", false)
	pdf.Ln(2)

	if len(doc.Bullets) > 0 {
		section(pdf, "Highlights")
		pdf.SetFont("Helvetica", "", 10)
		for _, b := range doc.Bullets {
			pdf.CellFormat(5, 5, "-", "", 0, "L", false, 0, "")
			pdf.MultiCell(0, 5, tr(b), "", "L", false)
			pdf.Ln(1)
		}
		pdf.Ln(1)
	}

	if len(doc.Skills) > 0 {
		section(pdf, "Skills")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(strings.Join(doc.Skills, ", ")), "", "L", false)
		pdf.Ln(2)
	}

	if doc.CoverLetter != "" {
		section(pdf, "Cover Letter")
		pdf.SetFont("Helvetica", "", 10)
		for _, para := range strings.Split(doc.CoverLetter, "\n\n") {
			pdf.MultiCell(0, 5, tr(para), "", "L", false)
			pdf.Ln(1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

// PageCount validates the PDF and returns its page count.
func PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read pdf: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return 0, fmt.Errorf("pdf failed validation: %w", err)
	}
	return ctx.PageCount, nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	x := pdf.GetX()
	y := pdf.GetY()
	pageW, _ := pdf.GetPageSize()
	_, _, right, _ := pdf.GetMargins()
	pdf.SetDrawColor(160, 160, 160)
	pdf.Line(x, y, pageW-right, y)
	pdf.Ln(1)
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
