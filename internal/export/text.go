package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/henryLiu9527/invoice-ocr/internal/normalize"
)

// writeText renders the document as UTF-8 plain text with a commented
// metadata header block on top.
func writeText(path string, meta Metadata, doc *normalize.Document) error {
	var b strings.Builder
	b.WriteString("# OCR Recognition Results\n")
	fmt.Fprintf(&b, "# Original File: %s\n", meta.OriginalFile)
	fmt.Fprintf(&b, "# OCR Engine: %s\n", meta.Engine)
	fmt.Fprintf(&b, "# Document Type: %s\n", meta.DocumentType)
	fmt.Fprintf(&b, "# Export Time: %s\n", meta.ExportedAt.Format("2006-01-02 15:04:05"))
	b.WriteString("#" + strings.Repeat("-", 50) + "\n\n")

	for _, line := range contentLines(doc) {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// contentLines flattens a document into renderable text lines, expanding
// each table marker into its fixed-width bordered grid in place.
func contentLines(doc *normalize.Document) []string {
	if doc == nil {
		return nil
	}
	var out []string
	for _, line := range doc.Lines {
		if line.Kind == normalize.KindTableMarker {
			if line.Grid >= 0 && line.Grid < len(doc.Grids) {
				out = append(out, gridLines(&doc.Grids[line.Grid])...)
			}
			continue
		}
		out = append(out, line.String())
	}
	return out
}

// gridLines renders one table grid as bordered fixed-width rows. Cells
// covered by a span render blank; the span origin carries the text.
func gridLines(grid *normalize.TableGrid) []string {
	widths := grid.ColumnWidths()
	if len(widths) == 0 {
		return nil
	}

	border := gridBorder(widths)
	out := []string{border}
	for _, row := range grid.Rows {
		var b strings.Builder
		b.WriteByte('|')
		for c, width := range widths {
			text := ""
			if c < len(row) {
				text = row[c].Text
			}
			b.WriteByte(' ')
			b.WriteString(padCell(text, width))
			b.WriteString(" |")
		}
		out = append(out, b.String(), border)
	}
	return out
}

func gridBorder(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}
	return b.String()
}

// padCell pads or truncates to the column width, counting runes so CJK
// content lines up with the border.
func padCell(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}
