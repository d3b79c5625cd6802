package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	apperrors "github.com/henryLiu9527/invoice-ocr/internal/errors"
	"github.com/henryLiu9527/invoice-ocr/internal/logging"
	"github.com/henryLiu9527/invoice-ocr/internal/normalize"
)

// Format identifies one export output type.
type Format string

const (
	FormatText     Format = "text"
	FormatTable    Format = "table"
	FormatDocument Format = "document"
	FormatArchive  Format = "archive"
)

var formatExtensions = map[Format]string{
	FormatText:     ".txt",
	FormatTable:    ".xlsx",
	FormatDocument: ".docx",
	FormatArchive:  ".json",
}

// Metadata accompanies every artifact so an export is traceable back to
// its source file and the engine that recognized it.
type Metadata struct {
	OriginalFile string    `json:"original_file"`
	Engine       string    `json:"engine"`
	DocumentType string    `json:"document_type"`
	ExportedAt   time.Time `json:"exported_at"`
}

// Artifact describes one file written by an export run.
type Artifact struct {
	Format Format `json:"format"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

// Registry records finished artifacts. Recording is best effort: a
// registry failure never fails the export that produced the artifact.
type Registry interface {
	RecordArtifact(ctx context.Context, a Artifact, meta Metadata) error
}

// Coordinator turns normalized documents into export artifacts. Every
// export writes the archival record first so the full recognition result
// survives even when the requested rendering fails.
type Coordinator struct {
	resultsDir string
	archiveDir string
	normalizer *normalize.Normalizer
	registry   Registry
	logger     *logging.Logger

	now func() time.Time
}

func NewCoordinator(resultsDir, archiveDir string, normalizer *normalize.Normalizer, registry Registry) *Coordinator {
	return &Coordinator{
		resultsDir: resultsDir,
		archiveDir: archiveDir,
		normalizer: normalizer,
		registry:   registry,
		logger:     logging.NewLogger("ExportCoordinator"),
		now:        time.Now,
	}
}

// Request carries one export job: the normalized document, the raw
// payload for archival, and the metadata to stamp on the artifact.
type Request struct {
	Document     *normalize.Document
	RawResult    interface{}
	OriginalFile string
	Engine       string
	DocumentType string
	Format       Format
}

// Export writes the requested artifact and returns its descriptor.
//
// The order is fixed: the archival JSON record is written first, best
// effort, then the requested format. When the requested format is the
// archive itself, that single write is the artifact and its failure is
// the export's failure.
func (c *Coordinator) Export(ctx context.Context, req Request) (*Artifact, error) {
	ext, ok := formatExtensions[req.Format]
	if !ok {
		return nil, apperrors.NewUnsupportedFormatError(string(req.Format))
	}

	meta := Metadata{
		OriginalFile: req.OriginalFile,
		Engine:       req.Engine,
		DocumentType: req.DocumentType,
		ExportedAt:   c.now(),
	}
	base := c.artifactBaseName(req.OriginalFile, meta.ExportedAt)

	archivePath := filepath.Join(c.archiveDir, base+formatExtensions[FormatArchive])
	archiveErr := writeArchive(archivePath, meta, req.RawResult)

	if req.Format == FormatArchive {
		if archiveErr != nil {
			return nil, apperrors.NewRenderError(string(FormatArchive), archiveErr)
		}
		return c.finish(ctx, FormatArchive, archivePath, meta)
	}

	if archiveErr != nil {
		c.logger.Warn("Archival record write failed, continuing with export",
			"path", archivePath, "error", archiveErr.Error())
	}

	outPath := filepath.Join(c.resultsDir, base+ext)
	var renderErr error
	switch req.Format {
	case FormatText:
		renderErr = writeText(outPath, meta, req.Document)
	case FormatTable:
		renderErr = writeWorkbook(outPath, meta, req.Document)
	case FormatDocument:
		renderErr = writeDocument(outPath, meta, req.Document)
	}
	if renderErr != nil {
		return nil, apperrors.NewRenderError(string(req.Format), renderErr)
	}
	return c.finish(ctx, req.Format, outPath, meta)
}

func (c *Coordinator) finish(ctx context.Context, format Format, path string, meta Metadata) (*Artifact, error) {
	artifact := Artifact{Format: format, Path: path}
	if info, err := os.Stat(path); err == nil {
		artifact.Size = info.Size()
	}

	if c.registry != nil {
		if err := c.registry.RecordArtifact(ctx, artifact, meta); err != nil {
			c.logger.Warn("Artifact registry record failed",
				"path", path, "error", err.Error())
		}
	}

	c.logger.Info("Export complete",
		"format", string(format), "path", path, "size", artifact.Size)
	return &artifact, nil
}

// artifactBaseName derives a safe output name from the original upload:
// the sanitized base name, the export timestamp, and a short random
// suffix so repeated exports of the same file never collide.
func (c *Coordinator) artifactBaseName(originalFile string, at time.Time) string {
	name := sanitizeBaseName(originalFile)
	suffix := strings.Split(uuid.New().String(), "-")[0]
	return fmt.Sprintf("%s_%s_%s", name, at.Format("20060102150405"), suffix)
}

// sanitizeBaseName strips the extension and keeps only characters safe
// for a filename on every platform the artifacts may land on.
func sanitizeBaseName(originalFile string) string {
	base := filepath.Base(originalFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range base {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimRight(b.String(), " ")
	if cleaned == "" {
		cleaned = "ocr_result"
	}
	return cleaned
}
