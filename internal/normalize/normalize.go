package normalize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/henryLiu9527/invoice-ocr/internal/engine"
	"github.com/henryLiu9527/invoice-ocr/internal/logging"
)

// Explicit fallback lines. Normalization never yields an empty document.
const (
	noTextNotice  = "未检测到文本内容"
	noTableNotice = "未检测到表格内容"
	failureNotice = "OCR Processing Failed"
)

// Normalizer classifies a canonical recognition result by document
// sub-type and extracts its display lines. It is a pure function of its
// inputs: the result is only read, never mutated.
type Normalizer struct {
	logger *logging.Logger
}

func NewNormalizer() *Normalizer {
	return &Normalizer{logger: logging.NewLogger("Normalizer")}
}

// Normalize produces the display document for one result. Classification
// precedence is fixed: VAT-invoice shape, then multi-invoice bundle,
// then form/table, then generic line-based text; a result that matches
// nothing still yields an explicit no-content line.
func (n *Normalizer) Normalize(res *engine.Result, docType engine.DocumentType) *Document {
	if res == nil || !res.Success {
		line := failureNotice
		if res != nil && res.Error != nil && res.Error.Message != "" {
			line = fmt.Sprintf("%s: %s", failureNotice, res.Error.Message)
		}
		return &Document{Lines: []DisplayLine{plainText(line)}}
	}

	payload := res.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}

	var doc *Document
	switch {
	case hasVATRecord(payload):
		doc = n.normalizeVAT(payload)
	case docType == engine.DocTypeMulti || hasBundleMarker(payload):
		doc = n.normalizeBundle(payload)
	case docType == engine.DocTypeForm:
		doc = n.normalizeForm(payload)
	default:
		doc = n.normalizeGeneric(payload, docType)
	}

	if len(doc.Lines) == 0 {
		doc.Lines = append(doc.Lines, plainText(noTextNotice))
	}
	return doc
}

// hasVATRecord reports whether the payload carries a VAT-invoice record,
// either at the top level or embedded inside a generic items list.
func hasVATRecord(payload map[string]interface{}) bool {
	_, ok := findVATRecord(payload)
	return ok
}

func findVATRecord(payload map[string]interface{}) (map[string]interface{}, bool) {
	if vat, ok := asMap(payload["vat_invoice"]); ok && len(vat) > 0 {
		return vat, true
	}
	if items, ok := asSlice(payload["words_result"]); ok {
		for _, item := range items {
			if m, ok := asMap(item); ok {
				if vat, ok := asMap(m["vat_invoice"]); ok && len(vat) > 0 {
					return vat, true
				}
			}
		}
	}
	return nil, false
}

// hasBundleMarker reports whether the payload carries the bundle marker
// key at all. The value may be any type; a non-map value degrades like
// an empty bundle during extraction.
func hasBundleMarker(payload map[string]interface{}) bool {
	_, ok := payload["multiple_invoice"]
	return ok
}

// normalizeVAT extracts through the VAT-invoice field schema: section
// header, then basic/seller/purchaser field groups, the commodity table
// as fixed-width text rows, then totals and remarks. A group is skipped
// entirely when none of its fields is present.
func (n *Normalizer) normalizeVAT(payload map[string]interface{}) *Document {
	vat, _ := findVATRecord(payload)

	doc := &Document{Lines: []DisplayLine{sectionHeader(vatInvoiceSchema.Title)}}

	for _, group := range vatInvoiceSchema.Groups {
		doc.Lines = append(doc.Lines, fieldGroupLines(vat, group)...)
		if group.Name == "purchaser" {
			doc.Lines = append(doc.Lines, commodityTableLines(vat)...)
		}
	}
	return doc
}

func fieldGroupLines(record map[string]interface{}, group FieldGroup) []DisplayLine {
	var lines []DisplayLine
	for _, f := range group.Fields {
		raw, ok := record[f.Key]
		if !ok {
			continue
		}
		value := fieldText(raw)
		if value == "" {
			continue
		}
		lines = append(lines, keyValue(f.Label, value))
	}
	return lines
}

// commodityTableLines renders the line items as fixed-width text rows,
// one row per item, with a label row on top. Column widths derive from
// the longest value per column, capped like table grids.
func commodityTableLines(vat map[string]interface{}) []DisplayLine {
	columns := make([][]string, len(commodityColumns))
	rowCount := 0
	for i, col := range commodityColumns {
		columns[i] = fieldList(vat[col.Key])
		if len(columns[i]) > rowCount {
			rowCount = len(columns[i])
		}
	}
	if rowCount == 0 {
		return nil
	}

	widths := make([]int, len(commodityColumns))
	for i, col := range commodityColumns {
		widths[i] = utf8.RuneCountInString(col.Label)
		for _, v := range columns[i] {
			if n := utf8.RuneCountInString(v); n > widths[i] {
				widths[i] = n
			}
		}
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
	}

	lines := make([]DisplayLine, 0, rowCount+1)
	labels := make([]string, len(commodityColumns))
	for i, col := range commodityColumns {
		labels[i] = padRight(col.Label, widths[i])
	}
	lines = append(lines, plainText(strings.TrimRight(strings.Join(labels, "  "), " ")))

	for r := 0; r < rowCount; r++ {
		cells := make([]string, len(commodityColumns))
		for i := range commodityColumns {
			v := ""
			if r < len(columns[i]) {
				v = columns[i][r]
			}
			cells[i] = padRight(v, widths[i])
		}
		lines = append(lines, plainText(strings.TrimRight(strings.Join(cells, "  "), " ")))
	}
	return lines
}

// normalizeBundle extracts a multi-invoice bundle: the detected sub-type
// label and its key/value detail pairs. With no bundle record, any plain
// text lines in the payload are used; failing that an explicit
// no-content line is emitted.
func (n *Normalizer) normalizeBundle(payload map[string]interface{}) *Document {
	bundle, ok := asMap(payload["multiple_invoice"])
	if !ok {
		doc := &Document{Lines: plainTextLines(payload)}
		if len(doc.Lines) == 0 {
			doc.Lines = []DisplayLine{plainText(noTextNotice)}
		}
		return doc
	}

	doc := &Document{Lines: []DisplayLine{sectionHeader("智能财务票据识别结果")}}

	detected := "Unknown"
	if t, ok := asMap(bundle["invoice_type"]); ok {
		if s := stringify(t["text"]); s != "" {
			detected = s
		}
	}
	doc.Lines = append(doc.Lines, keyValue("检测到的票据类型", detected))
	doc.Lines = append(doc.Lines, plainText(strings.Repeat("-", 30)))

	if details, ok := asSlice(bundle["details"]); ok {
		for _, raw := range details {
			item, ok := asMap(raw)
			if !ok {
				continue
			}
			doc.Lines = append(doc.Lines, keyValue(stringify(item["key"]), stringify(item["value"])))
		}
	}

	for _, f := range multiInvoiceFields {
		if raw, ok := bundle[f.Key]; ok {
			if v := fieldText(raw); v != "" {
				doc.Lines = append(doc.Lines, keyValue(f.Label, v))
			}
		}
	}
	return doc
}

// normalizeForm locates table data under any of the supported encodings
// and routes it through the grid builder; without table data it degrades
// to plain text lines, then to an explicit no-table line.
func (n *Normalizer) normalizeForm(payload map[string]interface{}) *Document {
	if grid, ok := BuildGrid(payload); ok {
		return &Document{
			Lines: []DisplayLine{sectionHeader("表格识别结果"), tableMarker(0)},
			Grids: []TableGrid{*grid},
		}
	}

	if lines := plainTextLines(payload); len(lines) > 0 {
		return &Document{Lines: lines}
	}
	return &Document{Lines: []DisplayLine{plainText(noTableNotice)}}
}

// normalizeGeneric treats the payload as line-based text: one plain line
// per recognized unit, with the confidence appended in parentheses when
// present and a secondary location line when a bounding box is present.
// The high-accuracy hint gets its section header.
func (n *Normalizer) normalizeGeneric(payload map[string]interface{}, docType engine.DocumentType) *Document {
	doc := &Document{}

	items, ok := asSlice(payload["words_result"])
	if !ok || len(items) == 0 {
		return doc
	}

	if docType == engine.DocTypeAuto {
		doc.Lines = append(doc.Lines, sectionHeader("通用高精度识别结果"))
	}

	for _, raw := range items {
		switch item := raw.(type) {
		case string:
			doc.Lines = append(doc.Lines, plainText(item))
		case map[string]interface{}:
			words := stringify(item["words"])
			line := words
			if prob, ok := asMap(item["probability"]); ok {
				if avg, ok := asFloat(prob["average"]); ok && avg > 0 {
					line = fmt.Sprintf("%s (置信度: %.2f)", words, avg)
				}
			}
			doc.Lines = append(doc.Lines, plainText(line))

			if loc, ok := asMap(item["location"]); ok && len(loc) > 0 {
				doc.Lines = append(doc.Lines, plainText(fmt.Sprintf(
					"  位置: 左=%d, 上=%d, 宽=%d, 高=%d",
					asInt(loc["left"]), asInt(loc["top"]), asInt(loc["width"]), asInt(loc["height"]))))
			}
		}
	}
	return doc
}

// plainTextLines pulls whatever plain recognized text exists in the
// payload, used by the degrade paths.
func plainTextLines(payload map[string]interface{}) []DisplayLine {
	items, ok := asSlice(payload["words_result"])
	if !ok {
		return nil
	}
	var lines []DisplayLine
	for _, raw := range items {
		switch item := raw.(type) {
		case string:
			lines = append(lines, plainText(item))
		case map[string]interface{}:
			if words := stringify(item["words"]); words != "" {
				lines = append(lines, plainText(words))
			}
		}
	}
	return lines
}

// Preview returns up to n plain recognized text units of a successful
// result, for the upload-and-review surface.
func Preview(res *engine.Result, n int) []string {
	if res == nil || !res.Success || res.Payload == nil {
		return nil
	}
	var out []string
	for _, line := range plainTextLines(res.Payload) {
		if len(out) >= n {
			break
		}
		out = append(out, line.Text)
	}
	return out
}

func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
