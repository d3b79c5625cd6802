package engine

import (
	"context"
	"image"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/henryLiu9527/invoice-ocr/internal/errors"
	"github.com/henryLiu9527/invoice-ocr/internal/logging"
)

// textRegion is one recognized line from the local model: a bounding
// quadrilateral, the recognized text, and the model's confidence.
type textRegion struct {
	Polygon    []image.Point
	Text       string
	Confidence float64
}

// LocalEngine runs Tesseract on a preprocessed copy of the image and
// shapes its per-line output into the same words_result structure the
// remote provider returns, so normalization sees one payload shape.
type LocalEngine struct {
	lang   string
	logger *logging.Logger
	// newClient is a factory so tests can stub the tesseract binding.
	newClient func() *gosseract.Client
}

// NewLocalEngine creates the local adapter. The tesseract client is
// created per call; the adapter itself is long-lived and reused.
func NewLocalEngine(lang string) *LocalEngine {
	if lang == "" {
		lang = "chi_sim+eng"
	}
	return &LocalEngine{
		lang:      lang,
		logger:    logging.NewLogger("LocalEngine"),
		newClient: gosseract.NewClient,
	}
}

func (e *LocalEngine) Name() Name { return Local }

// Recognize performs local OCR. Model and image-decode failures are
// terminal, non-retryable failures; the document-type hint does not
// change local processing.
func (e *LocalEngine) Recognize(ctx context.Context, imagePath string, docType DocumentType) *Result {
	e.logger.Info("Processing image with local OCR", "image", imagePath)

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return e.failure(docType, apperrors.NewImageDecodeError(imagePath, err))
	}

	if err := ctx.Err(); err != nil {
		return e.failure(docType, apperrors.NewEngineUnavailableError(string(Local), err))
	}

	processed, err := preprocessImage(data)
	if err != nil {
		return e.failure(docType, apperrors.NewImageDecodeError(imagePath, err))
	}

	regions, err := e.detect(ctx, processed)
	if err != nil {
		return e.failure(docType, apperrors.NewEngineUnavailableError(string(Local), err))
	}

	payload := regionsToPayload(regions)

	e.logger.Info("Local OCR successful", "image", imagePath, "lines", len(regions))
	return &Result{
		Success:      true,
		Engine:       Local,
		DocumentType: docType,
		Payload:      payload,
	}
}

// detect runs the model over the preprocessed image and collects one
// region per recognized text line.
func (e *LocalEngine) detect(ctx context.Context, imageData []byte) ([]textRegion, error) {
	client := e.newClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(e.lang, "+")...); err != nil {
		return nil, err
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return nil, err
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	regions := make([]textRegion, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		regions = append(regions, textRegion{
			Polygon: []image.Point{
				b.Box.Min,
				{X: b.Box.Max.X, Y: b.Box.Min.Y},
				b.Box.Max,
				{X: b.Box.Min.X, Y: b.Box.Max.Y},
			},
			Text:       text,
			Confidence: b.Confidence / 100.0,
		})
	}
	return regions, nil
}

// regionsToPayload converts model regions into the provider-compatible
// words_result shape: the quadrilateral is reduced to an axis-aligned
// box via min/max over its points, and the confidence is surfaced as an
// averaged probability.
func regionsToPayload(regions []textRegion) map[string]interface{} {
	wordsResult := make([]interface{}, 0, len(regions))
	for _, r := range regions {
		left, top := r.Polygon[0].X, r.Polygon[0].Y
		right, bottom := left, top
		for _, p := range r.Polygon {
			if p.X < left {
				left = p.X
			}
			if p.Y < top {
				top = p.Y
			}
			if p.X > right {
				right = p.X
			}
			if p.Y > bottom {
				bottom = p.Y
			}
		}

		wordsResult = append(wordsResult, map[string]interface{}{
			"words":       r.Text,
			"probability": map[string]interface{}{"average": r.Confidence},
			"location": map[string]interface{}{
				"left":   left,
				"top":    top,
				"width":  right - left,
				"height": bottom - top,
			},
		})
	}

	return map[string]interface{}{
		"words_result":     wordsResult,
		"words_result_num": len(wordsResult),
	}
}

func (e *LocalEngine) failure(docType DocumentType, err *apperrors.OCRError) *Result {
	return &Result{
		Success:      false,
		Engine:       Local,
		DocumentType: docType,
		Error: &ErrorDetail{
			Code:    string(err.Code),
			Message: err.Message,
		},
	}
}
