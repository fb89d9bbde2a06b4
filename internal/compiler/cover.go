package compiler

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// JobMetadata is the cover page content for one compiled job report.
type JobMetadata struct {
	Title          string `json:"title"`
	Client         string `json:"client"`
	ClaimReference string `json:"claim_reference"`
}

// coverPage renders the report cover.
func coverPage(meta JobMetadata, formCount int, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 22)
	pdf.Ln(30)
	title := meta.Title
	if title == "" {
		title = "Job Report"
	}
	pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "", 12)
	rows := [][2]string{
		{"Client", meta.Client},
		{"Claim reference", meta.ClaimReference},
		{"Generated", generatedAt.Format("02 Jan 2006 15:04 MST")},
		{"Forms included", fmt.Sprintf("%d", formCount)},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(50, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render cover page: %w", err)
	}
	return buf.Bytes(), nil
}
