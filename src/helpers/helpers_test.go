package helpers

import (
	"errors"
	"testing"
)

func TestErrorTaxonomyUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewProviderError("TCS.NS", cause)

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not reachable through Unwrap")
	}
	if got, want := err.Error(), "provider failed for TCS.NS: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	var te *TransportError
	if errors.As(err, &te) {
		t.Errorf("provider error must not match TransportError")
	}
}

func TestRecoverError(t *testing.T) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = RecoverError(r)
			}
		}()
		panic("boom")
	}()

	if !errors.Is(err, ErrPanic) {
		t.Fatalf("expected ErrPanic, got %v", err)
	}

	wrapped := NewSchedulerTickError(err)
	var ste *SchedulerTickError
	if !errors.As(wrapped, &ste) || !errors.Is(wrapped, ErrPanic) {
		t.Errorf("scheduler tick error lost its cause: %v", wrapped)
	}
}

func TestProxyManager(t *testing.T) {
	pm := NewProxyManager([]string{"10.0.0.1:8080", "", "socks5://10.0.0.2:1080"}, "test-agent")

	if !pm.HasProxies() {
		t.Fatal("expected proxies")
	}
	p, _ := pm.GetCurrentProxy()
	if p != "http://10.0.0.1:8080" {
		t.Errorf("first proxy = %q", p)
	}
	pm.RotateProxy()
	p, _ = pm.GetCurrentProxy()
	if p != "socks5://10.0.0.2:1080" {
		t.Errorf("rotated proxy = %q", p)
	}
	pm.RotateProxy()
	p, _ = pm.GetCurrentProxy()
	if p != "http://10.0.0.1:8080" {
		t.Errorf("rotation did not wrap: %q", p)
	}
	if ua := pm.GetUserAgent(); ua != "test-agent" {
		t.Errorf("user agent = %q", ua)
	}
}

func TestProxyManagerEmpty(t *testing.T) {
	pm := NewProxyManager(nil, "")
	if pm.HasProxies() {
		t.Error("no proxies expected")
	}
	if p, err := pm.GetCurrentProxy(); p != "" || err != nil {
		t.Errorf("GetCurrentProxy() = %q, %v", p, err)
	}
	if pm.GetUserAgent() == "" {
		t.Error("expected a default user agent")
	}
}

func TestRoundPrice(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{2500.555, 2500.56},
		{1.004, 1},
		{-3.335, -3.34},
		{0, 0},
	}
	for _, tt := range tests {
		if got := RoundPrice(tt.in); got != tt.want {
			t.Errorf("RoundPrice(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPercentChange(t *testing.T) {
	if got := PercentChange(200, 210); got != 5 {
		t.Errorf("PercentChange(200, 210) = %v", got)
	}
	if got := PercentChange(3, 2); got != -33.33 {
		t.Errorf("PercentChange(3, 2) = %v", got)
	}
	if got := PercentChange(0, 10); got != 0 {
		t.Errorf("zero base = %v", got)
	}
}
