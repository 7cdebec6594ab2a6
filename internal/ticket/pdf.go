package ticket

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// RenderPDF writes a printable document to w with one page per ticket:
// holder name, a checkbox row per use, and a QR code carrying the ticket
// ID for scanning at redemption.
func RenderPDF(w io.Writer, tickets []*Ticket) error {
	if len(tickets) == 0 {
		return fmt.Errorf("no tickets to render")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Massage Tickets", false)

	for _, t := range tickets {
		if err := renderTicketPage(pdf, t); err != nil {
			return err
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing PDF: %w", err)
	}
	return nil
}

func renderTicketPage(pdf *fpdf.Fpdf, t *Ticket) error {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 16, "Massage Ticket", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Holder: %s", t.Holder), "", 1, "C", false, 0, "")
	if t.ExpiresAt != nil {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 8, fmt.Sprintf("Valid until %s", t.ExpiresAt.Format("2006-01-02")), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	// One box per use, punched at redemption.
	pdf.SetFont("Helvetica", "", 12)
	const boxSize = 12.0
	rowWidth := float64(t.TotalUses) * (boxSize + 4)
	pageWidth, _ := pdf.GetPageSize()
	x := (pageWidth - rowWidth) / 2
	y := pdf.GetY()
	for i := 0; i < t.TotalUses; i++ {
		pdf.Rect(x, y, boxSize, boxSize, "D")
		if i < t.TotalUses-t.Remaining {
			// Already used: cross the box out.
			pdf.Line(x, y, x+boxSize, y+boxSize)
			pdf.Line(x+boxSize, y, x, y+boxSize)
		}
		x += boxSize + 4
	}
	pdf.SetY(y + boxSize + 10)

	png, err := qrcode.Encode(t.ID, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("encoding QR code for ticket %s: %w", t.ID, err)
	}

	imageName := "qr-" + t.ID
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(png))

	const qrSize = 50.0
	pdf.ImageOptions(imageName, (pageWidth-qrSize)/2, pdf.GetY(), qrSize, qrSize, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + qrSize + 4)

	pdf.SetFont("Courier", "", 9)
	pdf.CellFormat(0, 6, t.ID, "", 1, "C", false, 0, "")

	if pdf.Err() {
		return fmt.Errorf("rendering ticket %s: %v", t.ID, pdf.Error())
	}
	return nil
}
