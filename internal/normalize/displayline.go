// Package normalize turns a canonical recognition result into an ordered
// sequence of display lines (plus table grids) that every renderer
// consumes. Classification follows a fixed precedence over the payload
// shape so the caller's document-type hint can never silently
// misclassify a result.
package normalize

import "fmt"

// LineKind tags one display line variant.
type LineKind int

const (
	KindPlainText LineKind = iota
	KindSectionHeader
	KindKeyValue
	KindTableMarker
)

// DisplayLine is one renderable unit of output content. Order within a
// Document is significant and preserved end-to-end.
type DisplayLine struct {
	Kind  LineKind
	Text  string
	Label string
	Value string
	// Grid indexes into Document.Grids for KindTableMarker lines.
	Grid int
}

// Document is the normalized form of one recognition result.
type Document struct {
	Lines []DisplayLine
	Grids []TableGrid
}

func plainText(text string) DisplayLine {
	return DisplayLine{Kind: KindPlainText, Text: text}
}

func sectionHeader(title string) DisplayLine {
	return DisplayLine{Kind: KindSectionHeader, Text: title}
}

func keyValue(label, value string) DisplayLine {
	return DisplayLine{Kind: KindKeyValue, Label: label, Value: value}
}

func tableMarker(grid int) DisplayLine {
	return DisplayLine{Kind: KindTableMarker, Grid: grid}
}

// String renders the line's textual form. Table markers render empty;
// renderers expand the referenced grid themselves.
func (l DisplayLine) String() string {
	switch l.Kind {
	case KindSectionHeader:
		return fmt.Sprintf("== %s ==", l.Text)
	case KindKeyValue:
		return fmt.Sprintf("%s: %s", l.Label, l.Value)
	case KindTableMarker:
		return ""
	default:
		return l.Text
	}
}
