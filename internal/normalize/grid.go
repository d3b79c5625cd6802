package normalize

import "unicode/utf8"

// maxColumnWidth caps derived column widths for text rendering.
const maxColumnWidth = 30

// opaqueTableNotice is the single-cell placeholder used for pre-rendered
// table markup the builder does not attempt to parse.
const opaqueTableNotice = "表格内容仅在归档记录中完整保留"

// Cell is one position of a reconciled table grid. For a merged region
// only the top-left position carries the text and IsSpanOrigin; every
// other position covered by the span stays an empty placeholder.
type Cell struct {
	Text         string
	RowSpan      int
	ColSpan      int
	IsSpanOrigin bool
}

// TableGrid is the reconciled 2-D cell matrix used for tabular
// rendering. Column widths are derived, never stored.
type TableGrid struct {
	Rows [][]Cell
}

// ColumnWidths derives the text-rendering width of each column as
// min(30, longest cell content observed in that column).
func (g *TableGrid) ColumnWidths() []int {
	cols := 0
	for _, row := range g.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	widths := make([]int, cols)
	for _, row := range g.Rows {
		for c, cell := range row {
			if n := utf8.RuneCountInString(cell.Text); n > widths[c] {
				widths[c] = n
			}
		}
	}
	for c := range widths {
		if widths[c] > maxColumnWidth {
			widths[c] = maxColumnWidth
		}
		if widths[c] < 1 {
			widths[c] = 1
		}
	}
	return widths
}

// BuildGrid reconciles whichever table encoding the payload carries into
// one grid. When several encodings are present the first listed wins:
// header/body rows, then the flat cell list with spans, then opaque
// pre-rendered markup. Returns false when the payload has no table data.
func BuildGrid(payload map[string]interface{}) (*TableGrid, bool) {
	if payload == nil {
		return nil, false
	}
	if grid, ok := buildFromHeaderBody(payload); ok {
		return grid, true
	}
	if grid, ok := buildFromCellSpans(payload); ok {
		return grid, true
	}
	if grid, ok := buildFromOpaqueMarkup(payload); ok {
		return grid, true
	}
	return nil, false
}

// buildFromHeaderBody handles the encoding with an explicit header cell
// list and body rows, each cell exposing its text directly.
func buildFromHeaderBody(payload map[string]interface{}) (*TableGrid, bool) {
	forms, ok := asSlice(payload["forms_result"])
	if !ok || len(forms) == 0 {
		return nil, false
	}
	form, ok := asMap(forms[0])
	if !ok {
		return nil, false
	}

	var rows [][]Cell
	if header, ok := asSlice(form["header"]); ok && len(header) > 0 {
		rows = append(rows, cellsFromList(header))
	}
	if body, ok := asSlice(form["body"]); ok {
		for _, rawRow := range body {
			if rowCells, ok := asSlice(rawRow); ok && len(rowCells) > 0 {
				rows = append(rows, cellsFromList(rowCells))
			}
		}
	}

	if len(rows) == 0 {
		return nil, false
	}
	return &TableGrid{Rows: rows}, true
}

func cellsFromList(raw []interface{}) []Cell {
	cells := make([]Cell, 0, len(raw))
	for _, v := range raw {
		cells = append(cells, Cell{
			Text:         cellText(v),
			RowSpan:      1,
			ColSpan:      1,
			IsSpanOrigin: true,
		})
	}
	return cells
}

// buildFromCellSpans handles the flat cell list where each cell declares
// an inclusive row/column span range. The grid is sized by the maximum
// row/column end observed; a cell's text lands only at its top-left
// origin, the rest of the span stays blank.
func buildFromCellSpans(payload map[string]interface{}) (*TableGrid, bool) {
	tables, ok := asSlice(payload["tables_result"])
	if !ok || len(tables) == 0 {
		return nil, false
	}
	table, ok := asMap(tables[0])
	if !ok {
		return nil, false
	}
	body, ok := asSlice(table["body"])
	if !ok || len(body) == 0 {
		return nil, false
	}

	maxRow, maxCol := 0, 0
	type spanCell struct {
		rowStart, rowEnd, colStart, colEnd int
		text                               string
	}
	cells := make([]spanCell, 0, len(body))
	for _, raw := range body {
		m, ok := asMap(raw)
		if !ok {
			continue
		}
		sc := spanCell{
			rowStart: asInt(m["row_start"]),
			rowEnd:   asInt(m["row_end"]),
			colStart: asInt(m["col_start"]),
			colEnd:   asInt(m["col_end"]),
			text:     cellText(m["words"]),
		}
		if sc.rowEnd < sc.rowStart {
			sc.rowEnd = sc.rowStart
		}
		if sc.colEnd < sc.colStart {
			sc.colEnd = sc.colStart
		}
		if sc.rowEnd > maxRow {
			maxRow = sc.rowEnd
		}
		if sc.colEnd > maxCol {
			maxCol = sc.colEnd
		}
		cells = append(cells, sc)
	}
	if len(cells) == 0 {
		return nil, false
	}

	rows := make([][]Cell, maxRow+1)
	claimed := make([][]bool, maxRow+1)
	for r := range rows {
		row := make([]Cell, maxCol+1)
		for c := range row {
			row[c] = Cell{RowSpan: 1, ColSpan: 1}
		}
		rows[r] = row
		claimed[r] = make([]bool, maxCol+1)
	}

	// First-declared cells win: a position claimed by an earlier span is
	// never overwritten, so every span region keeps exactly one origin
	// even with overlapping declarations.
	for _, sc := range cells {
		for r := sc.rowStart; r <= sc.rowEnd; r++ {
			for c := sc.colStart; c <= sc.colEnd; c++ {
				if claimed[r][c] {
					continue
				}
				claimed[r][c] = true
				if r == sc.rowStart && c == sc.colStart {
					rows[r][c] = Cell{
						Text:         sc.text,
						RowSpan:      sc.rowEnd - sc.rowStart + 1,
						ColSpan:      sc.colEnd - sc.colStart + 1,
						IsSpanOrigin: true,
					}
				}
			}
		}
	}

	return &TableGrid{Rows: rows}, true
}

// buildFromOpaqueMarkup handles pre-rendered markup the provider ships
// as a single string. It is not parsed; the grid carries one
// explanatory cell pointing at the archival record.
func buildFromOpaqueMarkup(payload map[string]interface{}) (*TableGrid, bool) {
	raw, ok := payload["result_data"].(string)
	if !ok || raw == "" {
		return nil, false
	}
	return &TableGrid{
		Rows: [][]Cell{{
			{Text: opaqueTableNotice, RowSpan: 1, ColSpan: 1, IsSpanOrigin: true},
		}},
	}, true
}

func cellText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		if w, ok := t["words"]; ok {
			return stringify(w)
		}
		if w, ok := t["word"]; ok {
			return stringify(w)
		}
		return stringify(t)
	default:
		return stringify(v)
	}
}
