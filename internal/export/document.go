package export

import (
	"fmt"

	"github.com/gomutex/godocx"

	"github.com/henryLiu9527/invoice-ocr/internal/normalize"
)

// writeDocument renders the document as a Word file: a title, the export
// metadata, then the recognized text. Table grids degrade to their
// fixed-width text rendering; the workbook export carries the real
// table structure.
func writeDocument(path string, meta Metadata, doc *normalize.Document) error {
	w, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	w.AddHeading("OCR Recognition Results", 0)

	w.AddHeading("Export Information", 1)
	w.AddParagraph(fmt.Sprintf("Original File: %s", meta.OriginalFile))
	w.AddParagraph(fmt.Sprintf("OCR Engine: %s", meta.Engine))
	w.AddParagraph(fmt.Sprintf("Document Type: %s", meta.DocumentType))
	w.AddParagraph(fmt.Sprintf("Export Time: %s", meta.ExportedAt.Format("2006-01-02 15:04:05")))

	w.AddHeading("Recognized Text", 1)
	lines := contentLines(doc)
	if len(lines) == 0 {
		lines = []string{""}
	}
	for _, line := range lines {
		w.AddParagraph(line)
	}

	return w.SaveTo(path)
}
