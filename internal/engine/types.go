// Package engine defines the canonical recognition result shared by all
// OCR providers, the adapter contract, and the primary/fallback manager.
package engine

import "context"

// Name identifies one recognition engine.
type Name string

const (
	// Remote is the cloud-hosted provider (Baidu OCR).
	Remote Name = "remote"
	// Local is the on-host Tesseract engine.
	Local Name = "local"
)

// DocumentType is the caller-declared document sub-type hint. It maps to
// a provider endpoint variant and steers result normalization; the
// payload's actual shape still wins during classification.
type DocumentType string

const (
	DocTypeAuto    DocumentType = "Auto"
	DocTypeVAT     DocumentType = "VAT"
	DocTypeGeneral DocumentType = "General"
	DocTypeReceipt DocumentType = "Receipt"
	DocTypeForm    DocumentType = "Form"
	DocTypeMulti   DocumentType = "MultiInvoice"
)

// ErrorDetail carries the typed provider error of a failed call.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// ProviderCode is the provider's native numeric error code, zero
	// when the failure did not originate from a provider response.
	ProviderCode int `json:"provider_code,omitempty"`
}

// Result is the engine-agnostic canonical outcome of one recognition
// call. It is immutable once produced: normalization and export only
// read it.
type Result struct {
	Success      bool                   `json:"success"`
	Engine       Name                   `json:"engine"`
	DocumentType DocumentType           `json:"document_type"`
	Payload      map[string]interface{} `json:"result,omitempty"`
	Error        *ErrorDetail           `json:"error,omitempty"`
}

// Engine is one interchangeable recognition provider. Recognize never
// returns a Go error for ordinary provider failures; those come back as
// a Result with Success=false and a typed ErrorDetail.
type Engine interface {
	Name() Name
	Recognize(ctx context.Context, imagePath string, docType DocumentType) *Result
}
