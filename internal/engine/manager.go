package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/henryLiu9527/invoice-ocr/internal/logging"
)

// recognition states of one Manager.Recognize call.
type state int

const (
	stateTryPrimary state = iota
	stateTryFallback
	stateDone
)

// EngineInfo describes one engine for the selection UI.
type EngineInfo struct {
	ID          Name   `json:"id"`
	Label       string `json:"name"`
	Description string `json:"description"`
}

// Catalogue lists the available engines and the current selection policy.
type Catalogue struct {
	Engines         []EngineInfo `json:"engines"`
	Primary         Name         `json:"primary"`
	FallbackEnabled bool         `json:"fallback_enabled"`
}

// Manager owns the primary/fallback engine selection policy. Adapters
// are injected once at construction and never recreated; switching the
// primary engine is a pure configuration mutation.
type Manager struct {
	mu              sync.RWMutex
	engines         map[Name]Engine
	primary         Name
	fallbackEnabled bool
	logger          *logging.Logger
}

// NewManager wires the two long-lived adapters into a manager.
func NewManager(remote, local Engine, primary Name, fallbackEnabled bool) (*Manager, error) {
	if remote == nil || local == nil {
		return nil, fmt.Errorf("both engine adapters are required")
	}
	if primary != Remote && primary != Local {
		return nil, fmt.Errorf("unknown primary engine: %s", primary)
	}

	return &Manager{
		engines: map[Name]Engine{
			Remote: remote,
			Local:  local,
		},
		primary:         primary,
		fallbackEnabled: fallbackEnabled,
		logger:          logging.NewLogger("EngineManager"),
	}, nil
}

// SetPrimary switches the primary engine. Configuration only: the
// already-initialized adapters are untouched.
func (m *Manager) SetPrimary(name Name) error {
	if name != Remote && name != Local {
		return fmt.Errorf("unknown engine name: %s", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.Info("Primary engine changed", "primary", name)
	m.primary = name
	return nil
}

// SetFallbackEnabled toggles the fallback engine.
func (m *Manager) SetFallbackEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackEnabled = enabled
}

// Primary returns the configured primary engine name.
func (m *Manager) Primary() Name {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.primary
}

// Recognize drives the selection state machine: try the primary engine;
// on failure, try the other engine if fallback is enabled; the fallback
// outcome, success or failure, is final. The returned result is tagged
// with whichever engine actually produced it.
func (m *Manager) Recognize(ctx context.Context, imagePath string, docType DocumentType) *Result {
	m.mu.RLock()
	primary := m.primary
	fallbackEnabled := m.fallbackEnabled
	m.mu.RUnlock()

	fallback := Local
	if primary == Local {
		fallback = Remote
	}

	var result *Result
	st := stateTryPrimary
	for st != stateDone {
		switch st {
		case stateTryPrimary:
			result = m.engines[primary].Recognize(ctx, imagePath, docType)
			if result.Success || !fallbackEnabled {
				st = stateDone
				break
			}
			m.logger.Warn("Primary engine failed, switching to fallback",
				"primary", primary, "fallback", fallback, "error", errorMessage(result))
			st = stateTryFallback

		case stateTryFallback:
			result = m.engines[fallback].Recognize(ctx, imagePath, docType)
			st = stateDone
		}
	}

	if result.Success {
		m.logger.Info("Recognition successful", "engine", result.Engine)
	} else {
		m.logger.Error("Recognition failed with all engines", "lastError", errorMessage(result))
	}
	return result
}

// AvailableEngines returns the engine descriptors together with the
// current selection policy.
func (m *Manager) AvailableEngines() Catalogue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Catalogue{
		Engines: []EngineInfo{
			{ID: Remote, Label: "Baidu OCR", Description: "Cloud recognition"},
			{ID: Local, Label: "Tesseract", Description: "Local processing"},
		},
		Primary:         m.primary,
		FallbackEnabled: m.fallbackEnabled,
	}
}

func errorMessage(r *Result) string {
	if r == nil || r.Error == nil {
		return "unknown error"
	}
	return r.Error.Message
}
