package normalize

import "testing"

func cellPayload(words string, rs, re, cs, ce int) map[string]interface{} {
	return map[string]interface{}{
		"words":     words,
		"row_start": float64(rs),
		"row_end":   float64(re),
		"col_start": float64(cs),
		"col_end":   float64(ce),
	}
}

func TestBuildGridFromHeaderBody(t *testing.T) {
	payload := map[string]interface{}{
		"forms_result": []interface{}{
			map[string]interface{}{
				"header": []interface{}{
					map[string]interface{}{"words": "Name"},
					map[string]interface{}{"words": "Quantity"},
				},
				"body": []interface{}{
					[]interface{}{map[string]interface{}{"words": "pen"}, map[string]interface{}{"words": "3"}},
					[]interface{}{map[string]interface{}{"words": "notebook"}, map[string]interface{}{"words": "12"}},
				},
			},
		},
	}

	grid, ok := BuildGrid(payload)
	if !ok {
		t.Fatal("expected a grid from header/body encoding")
	}
	if len(grid.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(grid.Rows))
	}
	if grid.Rows[0][0].Text != "Name" || grid.Rows[2][1].Text != "12" {
		t.Errorf("unexpected cell texts: %+v", grid.Rows)
	}
	for r, row := range grid.Rows {
		for c, cell := range row {
			if cell.RowSpan != 1 || cell.ColSpan != 1 || !cell.IsSpanOrigin {
				t.Errorf("cell (%d,%d): header/body cells must be 1x1 origins, got %+v", r, c, cell)
			}
		}
	}

	widths := grid.ColumnWidths()
	if widths[0] != 8 { // "notebook"
		t.Errorf("column 0 width: got %d, want 8", widths[0])
	}
	if widths[1] != 8 { // "Quantity"
		t.Errorf("column 1 width: got %d, want 8", widths[1])
	}
}

func TestBuildGridFromCellSpans(t *testing.T) {
	payload := map[string]interface{}{
		"tables_result": []interface{}{
			map[string]interface{}{
				"body": []interface{}{
					cellPayload("merged", 0, 2, 0, 2),
				},
			},
		},
	}

	grid, ok := BuildGrid(payload)
	if !ok {
		t.Fatal("expected a grid from the flat cell list")
	}
	if len(grid.Rows) != 3 || len(grid.Rows[0]) != 3 {
		t.Fatalf("expected 3x3 grid, got %dx%d", len(grid.Rows), len(grid.Rows[0]))
	}

	origin := grid.Rows[0][0]
	if !origin.IsSpanOrigin || origin.RowSpan != 3 || origin.ColSpan != 3 || origin.Text != "merged" {
		t.Errorf("span origin wrong: %+v", origin)
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if r == 0 && c == 0 {
				continue
			}
			cell := grid.Rows[r][c]
			if cell.IsSpanOrigin || cell.Text != "" || cell.RowSpan != 1 || cell.ColSpan != 1 {
				t.Errorf("covered cell (%d,%d) must be a blank non-origin, got %+v", r, c, cell)
			}
		}
	}
}

func TestBuildGridOverlappingSpansKeepFirstOrigin(t *testing.T) {
	payload := map[string]interface{}{
		"tables_result": []interface{}{
			map[string]interface{}{
				"body": []interface{}{
					cellPayload("first", 0, 1, 0, 1),
					cellPayload("second", 1, 2, 1, 2),
				},
			},
		},
	}

	grid, ok := BuildGrid(payload)
	if !ok {
		t.Fatal("expected a grid")
	}

	origin := grid.Rows[0][0]
	if !origin.IsSpanOrigin || origin.Text != "first" || origin.RowSpan != 2 || origin.ColSpan != 2 {
		t.Errorf("first-declared origin lost: %+v", origin)
	}

	// The second cell's origin position is already covered by the first
	// span; its blanks must not overwrite claimed positions, and the
	// first span keeps exactly one origin.
	origins := 0
	for r, row := range grid.Rows {
		for c, cell := range row {
			if cell.IsSpanOrigin {
				origins++
				if r != 0 || c != 0 {
					t.Errorf("unexpected origin at (%d,%d): %+v", r, c, cell)
				}
			}
		}
	}
	if origins != 1 {
		t.Errorf("expected exactly one origin, got %d", origins)
	}
}

func TestBuildGridFromOpaqueMarkup(t *testing.T) {
	payload := map[string]interface{}{
		"result_data": "<table><tr><td>raw</td></tr></table>",
	}

	grid, ok := BuildGrid(payload)
	if !ok {
		t.Fatal("expected a grid from opaque markup")
	}
	if len(grid.Rows) != 1 || len(grid.Rows[0]) != 1 {
		t.Fatalf("opaque markup must yield a single-cell grid, got %+v", grid.Rows)
	}
	if grid.Rows[0][0].Text != opaqueTableNotice {
		t.Errorf("unexpected placeholder: %q", grid.Rows[0][0].Text)
	}
}

func TestBuildGridPrecedence(t *testing.T) {
	payload := map[string]interface{}{
		"forms_result": []interface{}{
			map[string]interface{}{
				"header": []interface{}{map[string]interface{}{"words": "H"}},
				"body":   []interface{}{},
			},
		},
		"result_data": "<table/>",
	}

	grid, ok := BuildGrid(payload)
	if !ok {
		t.Fatal("expected a grid")
	}
	if grid.Rows[0][0].Text != "H" {
		t.Errorf("header/body encoding must win over opaque markup, got %q", grid.Rows[0][0].Text)
	}
}

func TestBuildGridAbsent(t *testing.T) {
	if _, ok := BuildGrid(map[string]interface{}{"words_result": []interface{}{}}); ok {
		t.Error("payload without table data must not yield a grid")
	}
}

func TestColumnWidthsCapped(t *testing.T) {
	grid := &TableGrid{Rows: [][]Cell{{
		{Text: "0123456789012345678901234567890123456789", RowSpan: 1, ColSpan: 1, IsSpanOrigin: true},
	}}}
	if w := grid.ColumnWidths()[0]; w != maxColumnWidth {
		t.Errorf("width must cap at %d, got %d", maxColumnWidth, w)
	}
}
