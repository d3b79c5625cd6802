package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewEngineUnavailableError("local", cause)

	if !strings.Contains(err.Error(), "ENGINE_UNAVAILABLE") {
		t.Errorf("missing code in message: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("missing cause in message: %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("cause must unwrap")
	}
}

func TestTransient(t *testing.T) {
	cases := []struct {
		err  *OCRError
		want bool
	}{
		{NewRateLimitedError("remote", 17, "qps"), true},
		{NewCredentialExpiredError("remote", 110), true},
		{NewProviderError("remote", 216201, "bad image"), false},
		{NewUnsupportedFormatError("pdf"), false},
		{NewImageDecodeError("a.png", errors.New("bad header")), false},
	}
	for _, tc := range cases {
		if got := tc.err.Transient(); got != tc.want {
			t.Errorf("%s: Transient()=%v, want %v", tc.err.Code, got, tc.want)
		}
	}
}

func TestToMap(t *testing.T) {
	err := NewRateLimitedError("remote", 17, "qps limit reached")
	m := err.ToMap()

	if m["error_code"] != "RATE_LIMITED" {
		t.Errorf("error_code: %v", m["error_code"])
	}
	if m["engine"] != "remote" {
		t.Errorf("engine: %v", m["engine"])
	}
	if m["provider_code"] != 17 {
		t.Errorf("provider_code: %v", m["provider_code"])
	}

	withCause := NewRenderError("table", errors.New("disk full"))
	if withCause.ToMap()["cause"] != "disk full" {
		t.Errorf("cause: %v", withCause.ToMap()["cause"])
	}
}
