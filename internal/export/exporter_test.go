package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/henryLiu9527/invoice-ocr/internal/engine"
	apperrors "github.com/henryLiu9527/invoice-ocr/internal/errors"
	"github.com/henryLiu9527/invoice-ocr/internal/normalize"
)

type recordingRegistry struct {
	artifacts []Artifact
	err       error
}

func (r *recordingRegistry) RecordArtifact(_ context.Context, a Artifact, _ Metadata) error {
	if r.err != nil {
		return r.err
	}
	r.artifacts = append(r.artifacts, a)
	return nil
}

func testCoordinator(t *testing.T, registry Registry) (*Coordinator, string, string) {
	t.Helper()
	resultsDir := t.TempDir()
	archiveDir := t.TempDir()
	c := NewCoordinator(resultsDir, archiveDir, normalize.NewNormalizer(), registry)
	c.now = func() time.Time {
		return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	}
	return c, resultsDir, archiveDir
}

func testRequest(format Format) Request {
	doc := &normalize.Document{
		Lines: []normalize.DisplayLine{
			{Kind: normalize.KindSectionHeader, Text: "通用高精度识别结果"},
			{Kind: normalize.KindPlainText, Text: "Hello OCR"},
			{Kind: normalize.KindKeyValue, Label: "Total", Value: "42.00"},
		},
	}
	raw := &engine.Result{Success: true, Engine: engine.Remote, Payload: map[string]interface{}{
		"words_result": []interface{}{map[string]interface{}{"words": "Hello OCR"}},
	}}
	return Request{
		Document:     doc,
		RawResult:    raw,
		OriginalFile: "scan 001.png",
		Engine:       string(engine.Remote),
		DocumentType: "General",
		Format:       format,
	}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestExportTextWritesArtifactAndArchive(t *testing.T) {
	registry := &recordingRegistry{}
	c, _, archiveDir := testCoordinator(t, registry)

	artifact, err := c.Export(context.Background(), testRequest(FormatText))
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if artifact.Format != FormatText || artifact.Size == 0 {
		t.Errorf("unexpected artifact: %+v", artifact)
	}

	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		"# OCR Recognition Results",
		"# Original File: scan 001.png",
		"# OCR Engine: remote",
		"# Export Time: 2024-03-15 10:30:00",
		"#" + strings.Repeat("-", 50),
		"== 通用高精度识别结果 ==",
		"Hello OCR",
		"Total: 42.00",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("text artifact missing %q", want)
		}
	}

	archives := dirEntries(t, archiveDir)
	if len(archives) != 1 {
		t.Fatalf("expected one archival record, got %v", archives)
	}
	if len(registry.artifacts) != 1 {
		t.Errorf("expected one registry record, got %d", len(registry.artifacts))
	}
}

func TestExportArtifactNameSanitized(t *testing.T) {
	c, resultsDir, _ := testCoordinator(t, nil)

	req := testRequest(FormatText)
	req.OriginalFile = "../we!rd/na*me?.png"
	if _, err := c.Export(context.Background(), req); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	names := dirEntries(t, resultsDir)
	if len(names) != 1 {
		t.Fatalf("expected one artifact, got %v", names)
	}
	if !strings.HasPrefix(names[0], "name_20240315103000_") {
		t.Errorf("unexpected sanitized name: %q", names[0])
	}
	if !strings.HasSuffix(names[0], ".txt") {
		t.Errorf("missing extension: %q", names[0])
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	c, _, _ := testCoordinator(t, nil)

	_, err := c.Export(context.Background(), Request{Format: Format("pdf")})
	if err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
	ocrErr, ok := err.(*apperrors.OCRError)
	if !ok || ocrErr.Code != apperrors.ErrorUnsupportedFormat {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExportArchiveFormat(t *testing.T) {
	c, resultsDir, archiveDir := testCoordinator(t, nil)

	artifact, err := c.Export(context.Background(), testRequest(FormatArchive))
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if filepath.Dir(artifact.Path) != archiveDir {
		t.Errorf("archive artifact not in archive dir: %s", artifact.Path)
	}
	if names := dirEntries(t, resultsDir); len(names) != 0 {
		t.Errorf("archive export must not write to results dir: %v", names)
	}

	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	var record struct {
		Metadata Metadata               `json:"metadata"`
		Result   map[string]interface{} `json:"result"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("archive is not valid JSON: %v", err)
	}
	if record.Metadata.OriginalFile != "scan 001.png" {
		t.Errorf("archive metadata wrong: %+v", record.Metadata)
	}
	if record.Result["result"] == nil {
		t.Errorf("archive missing raw result payload: %v", record.Result)
	}
}

func TestExportArchiveFailureNotFatalForOtherFormats(t *testing.T) {
	resultsDir := t.TempDir()
	c := NewCoordinator(resultsDir, filepath.Join(t.TempDir(), "missing", "deep"), normalize.NewNormalizer(), nil)
	c.now = time.Now

	artifact, err := c.Export(context.Background(), testRequest(FormatText))
	if err != nil {
		t.Fatalf("archive failure must not fail a text export: %v", err)
	}
	if _, statErr := os.Stat(artifact.Path); statErr != nil {
		t.Errorf("text artifact missing: %v", statErr)
	}
}

func TestExportRegistryFailureNotFatal(t *testing.T) {
	registry := &recordingRegistry{err: context.DeadlineExceeded}
	c, _, _ := testCoordinator(t, registry)

	if _, err := c.Export(context.Background(), testRequest(FormatText)); err != nil {
		t.Fatalf("registry failure must not fail the export: %v", err)
	}
}

func TestExportWorkbookAndDocumentWriteFiles(t *testing.T) {
	for _, format := range []Format{FormatTable, FormatDocument} {
		c, _, _ := testCoordinator(t, nil)
		artifact, err := c.Export(context.Background(), testRequest(format))
		if err != nil {
			t.Fatalf("%s export failed: %v", format, err)
		}
		info, err := os.Stat(artifact.Path)
		if err != nil {
			t.Fatalf("%s artifact missing: %v", format, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s artifact is empty", format)
		}
	}
}

func TestExportTextRendersGrid(t *testing.T) {
	c, _, _ := testCoordinator(t, nil)

	req := testRequest(FormatText)
	req.Document = &normalize.Document{
		Lines: []normalize.DisplayLine{
			{Kind: normalize.KindSectionHeader, Text: "表格识别结果"},
			{Kind: normalize.KindTableMarker, Grid: 0},
		},
		Grids: []normalize.TableGrid{{Rows: [][]normalize.Cell{
			{{Text: "Name", RowSpan: 1, ColSpan: 1, IsSpanOrigin: true}, {Text: "Qty", RowSpan: 1, ColSpan: 1, IsSpanOrigin: true}},
			{{Text: "pen", RowSpan: 1, ColSpan: 1, IsSpanOrigin: true}, {Text: "3", RowSpan: 1, ColSpan: 1, IsSpanOrigin: true}},
		}}},
	}

	artifact, err := c.Export(context.Background(), req)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "+------+-----+") {
		t.Errorf("missing grid border in:\n%s", content)
	}
	if !strings.Contains(content, "| Name | Qty |") {
		t.Errorf("missing grid row in:\n%s", content)
	}
}
