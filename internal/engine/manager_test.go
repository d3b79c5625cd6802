package engine

import (
	"context"
	"testing"
)

type fakeEngine struct {
	name   Name
	result *Result
	calls  int
}

func (f *fakeEngine) Name() Name { return f.name }

func (f *fakeEngine) Recognize(_ context.Context, _ string, _ DocumentType) *Result {
	f.calls++
	return f.result
}

func okResult(name Name) *Result {
	return &Result{Success: true, Engine: name, Payload: map[string]interface{}{}}
}

func failResult(name Name) *Result {
	return &Result{
		Success: false,
		Engine:  name,
		Error:   &ErrorDetail{Code: "PROVIDER_FAILED", Message: "provider rejected the request"},
	}
}

func TestManagerPrimarySuccessSkipsFallback(t *testing.T) {
	remote := &fakeEngine{name: Remote, result: okResult(Remote)}
	local := &fakeEngine{name: Local, result: okResult(Local)}

	m, err := NewManager(remote, local, Remote, true)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	res := m.Recognize(context.Background(), "a.png", DocTypeAuto)
	if !res.Success || res.Engine != Remote {
		t.Errorf("unexpected result: %+v", res)
	}
	if remote.calls != 1 || local.calls != 0 {
		t.Errorf("fallback must not run after primary success: remote=%d local=%d", remote.calls, local.calls)
	}
}

func TestManagerFallsBackOnPrimaryFailure(t *testing.T) {
	remote := &fakeEngine{name: Remote, result: failResult(Remote)}
	local := &fakeEngine{name: Local, result: okResult(Local)}

	m, err := NewManager(remote, local, Remote, true)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	res := m.Recognize(context.Background(), "a.png", DocTypeAuto)
	if !res.Success || res.Engine != Local {
		t.Errorf("expected fallback result, got %+v", res)
	}
	if remote.calls != 1 || local.calls != 1 {
		t.Errorf("expected one call each: remote=%d local=%d", remote.calls, local.calls)
	}
}

func TestManagerNoFallbackWhenDisabled(t *testing.T) {
	remote := &fakeEngine{name: Remote, result: failResult(Remote)}
	local := &fakeEngine{name: Local, result: okResult(Local)}

	m, err := NewManager(remote, local, Remote, false)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	res := m.Recognize(context.Background(), "a.png", DocTypeAuto)
	if res.Success || res.Engine != Remote {
		t.Errorf("expected primary failure to stand, got %+v", res)
	}
	if local.calls != 0 {
		t.Errorf("fallback ran while disabled: %d calls", local.calls)
	}
}

func TestManagerFallbackFailureIsFinal(t *testing.T) {
	remote := &fakeEngine{name: Remote, result: failResult(Remote)}
	local := &fakeEngine{name: Local, result: failResult(Local)}

	m, err := NewManager(remote, local, Remote, true)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	res := m.Recognize(context.Background(), "a.png", DocTypeAuto)
	if res.Success || res.Engine != Local {
		t.Errorf("expected the fallback's failure, got %+v", res)
	}
	if remote.calls != 1 || local.calls != 1 {
		t.Errorf("no further attempts after fallback: remote=%d local=%d", remote.calls, local.calls)
	}
}

func TestManagerLocalPrimaryFallsBackToRemote(t *testing.T) {
	remote := &fakeEngine{name: Remote, result: okResult(Remote)}
	local := &fakeEngine{name: Local, result: failResult(Local)}

	m, err := NewManager(remote, local, Local, true)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	res := m.Recognize(context.Background(), "a.png", DocTypeAuto)
	if !res.Success || res.Engine != Remote {
		t.Errorf("expected remote fallback, got %+v", res)
	}
}

func TestManagerSetPrimary(t *testing.T) {
	remote := &fakeEngine{name: Remote, result: okResult(Remote)}
	local := &fakeEngine{name: Local, result: okResult(Local)}

	m, err := NewManager(remote, local, Remote, false)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if err := m.SetPrimary(Local); err != nil {
		t.Fatalf("set primary: %v", err)
	}
	if m.Primary() != Local {
		t.Errorf("primary not switched: %s", m.Primary())
	}

	res := m.Recognize(context.Background(), "a.png", DocTypeAuto)
	if res.Engine != Local {
		t.Errorf("recognition did not use the new primary: %+v", res)
	}

	if err := m.SetPrimary(Name("cloud9")); err == nil {
		t.Error("expected an error for an unknown engine name")
	}
}

func TestManagerInvalidConstruction(t *testing.T) {
	local := &fakeEngine{name: Local, result: okResult(Local)}

	if _, err := NewManager(nil, local, Remote, true); err == nil {
		t.Error("expected an error for a missing adapter")
	}
	remote := &fakeEngine{name: Remote, result: okResult(Remote)}
	if _, err := NewManager(remote, local, Name("paddle"), true); err == nil {
		t.Error("expected an error for an unknown primary name")
	}
}

func TestManagerAvailableEngines(t *testing.T) {
	remote := &fakeEngine{name: Remote, result: okResult(Remote)}
	local := &fakeEngine{name: Local, result: okResult(Local)}

	m, err := NewManager(remote, local, Remote, true)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	cat := m.AvailableEngines()
	if len(cat.Engines) != 2 {
		t.Fatalf("expected two engines, got %d", len(cat.Engines))
	}
	if cat.Primary != Remote || !cat.FallbackEnabled {
		t.Errorf("policy not reported: %+v", cat)
	}
	if cat.Engines[0].ID != Remote || cat.Engines[0].Label == "" {
		t.Errorf("incomplete descriptor: %+v", cat.Engines[0])
	}
}
