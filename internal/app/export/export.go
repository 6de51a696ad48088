// Package export renders interview transcripts as plain text or PDF.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
	"github.com/samber/lo"

	"github.com/PabloGalante/deltawind/internal/domain"
)

type Format string

const (
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts "txt", "text" and "pdf".
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(s) {
	case "txt", "text", "":
		return FormatText, true
	case "pdf":
		return FormatPDF, true
	}
	return "", false
}

// ContentType is the MIME type of an exported transcript.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// FileName is the download name of a transcript exported at t.
func FileName(f Format, t time.Time) string {
	return fmt.Sprintf("delta_windfarm_chat_%s.%s", t.Format("20060102_150405"), f)
}

// Section is one persona's conversation.
type Section struct {
	Persona  domain.Persona
	Messages []*domain.Message
}

// Sections lists the non-empty conversations of state in roster order.
func Sections(state *domain.SessionState, personas []domain.Persona) []Section {
	return lo.FilterMap(personas, func(p domain.Persona, _ int) (Section, bool) {
		conv := state.Conversation(p.ID)
		if conv.Len() == 0 {
			return Section{}, false
		}
		return Section{Persona: p, Messages: conv.History()}, true
	})
}

const (
	textTitle = "DELTA WIND FARM - Interview Transcript"
	rule      = 50
)

func speaker(p domain.Persona, m *domain.Message) string {
	if m.Author == domain.RoleUser {
		return "You"
	}
	return p.Name
}

// Text renders sections as a plain-text transcript.
func Text(sections []Section) string {
	var b strings.Builder
	b.WriteString(textTitle + "\n" + strings.Repeat("=", rule) + "\n\n")
	for _, s := range sections {
		b.WriteString(s.Persona.Label() + "\n" + strings.Repeat("-", rule) + "\n")
		for _, m := range s.Messages {
			fmt.Fprintf(&b, "[%s] %s: %s\n\n", m.CreatedAt.Format("15:04:05"), speaker(s.Persona, m), m.Text)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// PDF writes sections as a PDF document to w. Core PDF fonts only cover
// latin-1, so other characters are replaced by '?'.
func PDF(w io.Writer, title string, exportedAt time.Time, sections []Section) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, latin1(title), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 8, "Exported: "+exportedAt.Format("2006-01-02 15:04:05"), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	for _, s := range sections {
		pdf.SetFont("Arial", "B", 13)
		pdf.MultiCell(0, 8, latin1(s.Persona.Name+" - "+s.Persona.Title), "B", "L", false)
		pdf.Ln(2)

		for _, m := range s.Messages {
			pdf.SetFont("Arial", "B", 11)
			pdf.MultiCell(0, 7, latin1(fmt.Sprintf("[%s] %s:", m.CreatedAt.Format("15:04:05"), speaker(s.Persona, m))), "", "L", false)
			pdf.SetFont("Arial", "", 11)
			pdf.MultiCell(0, 6, latin1(m.Text), "", "L", false)
			pdf.Ln(3)
		}
		pdf.Ln(4)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render transcript pdf: %w", err)
	}
	return nil
}

// latin1 converts s to ISO-8859-1 bytes, replacing what does not fit.
func latin1(s string) string {
	out := make([]byte, 0, len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r > 0xFF || r == utf8.RuneError {
			out = append(out, '?')
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}
