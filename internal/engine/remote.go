package engine

import (
	"context"
	"encoding/base64"
	"net/url"
	"os"
	"time"

	"github.com/henryLiu9527/invoice-ocr/internal/clients"
	apperrors "github.com/henryLiu9527/invoice-ocr/internal/errors"
	"github.com/henryLiu9527/invoice-ocr/internal/logging"
)

// endpointByType maps the document-type hint to the provider's endpoint
// variant. Unknown hints fall back to the high-accuracy generic endpoint.
var endpointByType = map[DocumentType]string{
	DocTypeVAT:     "vat_invoice",
	DocTypeGeneral: "invoice",
	DocTypeReceipt: "receipt",
	DocTypeForm:    "form",
	DocTypeMulti:   "multiple_invoice",
	DocTypeAuto:    "accurate_basic",
}

// RemoteEngine adapts the Baidu OCR provider to the Engine contract.
type RemoteEngine struct {
	client     *clients.BaiduClient
	maxRetries int
	// backoffUnit is the linear backoff step for rate-limit retries:
	// attempt N waits N*backoffUnit. Overridable in tests.
	backoffUnit time.Duration
	logger      *logging.Logger
}

// NewRemoteEngine creates the remote adapter around an already
// constructed provider client.
func NewRemoteEngine(client *clients.BaiduClient, maxRetries int) *RemoteEngine {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RemoteEngine{
		client:      client,
		maxRetries:  maxRetries,
		backoffUnit: 2 * time.Second,
		logger:      logging.NewLogger("RemoteEngine"),
	}
}

func (e *RemoteEngine) Name() Name { return Remote }

// Recognize runs one recognition call against the provider endpoint
// matching docType. Credential-expired codes invalidate the cached token
// and retry once within the call; rate-limit codes retry with linear
// backoff up to the configured attempt budget; all other provider codes
// are terminal failures.
func (e *RemoteEngine) Recognize(ctx context.Context, imagePath string, docType DocumentType) *Result {
	endpoint, ok := endpointByType[docType]
	if !ok {
		endpoint = endpointByType[DocTypeAuto]
	}

	e.logger.Info("Processing image with remote OCR", "image", imagePath, "endpoint", endpoint)

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return e.failure(docType, apperrors.NewImageDecodeError(imagePath, err))
	}
	imageBase64 := base64.StdEncoding.EncodeToString(data)

	extra := url.Values{}
	if endpoint == "accurate_basic" {
		extra.Set("detect_direction", "true")
		extra.Set("probability", "true")
	}

	tokenRetried := false
	var lastErr *apperrors.OCRError

	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		resp, err := e.client.Recognize(ctx, endpoint, imageBase64, extra)
		if err != nil {
			lastErr = apperrors.NewEngineUnavailableError(string(Remote), err)
			e.logger.Warn("Remote OCR transport failure", "attempt", attempt, "error", err)
			if attempt < e.maxRetries && e.wait(ctx, attempt) != nil {
				break
			}
			continue
		}

		switch {
		case resp.ErrorCode == 0:
			e.logger.Info("Remote OCR successful", "image", imagePath)
			return &Result{
				Success:      true,
				Engine:       Remote,
				DocumentType: docType,
				Payload:      resp.Payload,
			}

		case resp.ErrorCode == clients.CodeTokenInvalid || resp.ErrorCode == clients.CodeTokenExpired:
			lastErr = apperrors.NewCredentialExpiredError(string(Remote), resp.ErrorCode)
			if tokenRetried {
				e.logger.Error("Credential still rejected after refresh", "code", resp.ErrorCode)
				return e.failureWithProviderCode(docType, lastErr, resp.ErrorCode)
			}
			e.logger.Warn("Credential expired, refreshing token", "code", resp.ErrorCode)
			e.client.InvalidateToken()
			tokenRetried = true
			// Retry within the same call without consuming the backoff budget
			attempt--

		case resp.ErrorCode == clients.CodeQPSLimit || resp.ErrorCode == clients.CodeDailyLimit:
			lastErr = apperrors.NewRateLimitedError(string(Remote), resp.ErrorCode, resp.ErrorMsg)
			e.logger.Warn("Remote OCR rate limited", "attempt", attempt, "code", resp.ErrorCode)
			if attempt < e.maxRetries {
				if e.wait(ctx, attempt) != nil {
					return e.failureWithProviderCode(docType, lastErr, resp.ErrorCode)
				}
			}

		default:
			// Terminal provider error
			e.logger.Error("Remote OCR provider error", "code", resp.ErrorCode, "message", resp.ErrorMsg)
			perr := apperrors.NewProviderError(string(Remote), resp.ErrorCode, resp.ErrorMsg)
			return e.failureWithProviderCode(docType, perr, resp.ErrorCode)
		}
	}

	if lastErr == nil {
		lastErr = apperrors.NewProviderError(string(Remote), 0, "maximum retry attempts reached")
	}
	return e.failure(docType, lastErr)
}

// wait sleeps for the linear backoff interval of the given attempt,
// honoring context cancellation.
func (e *RemoteEngine) wait(ctx context.Context, attempt int) error {
	select {
	case <-time.After(time.Duration(attempt) * e.backoffUnit):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *RemoteEngine) failure(docType DocumentType, err *apperrors.OCRError) *Result {
	return e.failureWithProviderCode(docType, err, 0)
}

func (e *RemoteEngine) failureWithProviderCode(docType DocumentType, err *apperrors.OCRError, providerCode int) *Result {
	return &Result{
		Success:      false,
		Engine:       Remote,
		DocumentType: docType,
		Error: &ErrorDetail{
			Code:         string(err.Code),
			Message:      err.Message,
			ProviderCode: providerCode,
		},
	}
}
