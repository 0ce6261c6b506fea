package resilience

import (
	"errors"
	"testing"
	"time"
)

// sttChain builds a two-backend group of fake transcription endpoints,
// identified by name so tests can assert which one served the call.
func sttChain(cfg CircuitBreakerConfig) *FallbackGroup[string] {
	fg := NewFallbackGroup("local-whisper", "local-whisper", FallbackConfig{CircuitBreaker: cfg})
	fg.AddFallback("hosted-stt", "hosted-stt")
	return fg
}

func TestFallbackGroup_PrefersPrimary(t *testing.T) {
	fg := sttChain(CircuitBreakerConfig{MaxFailures: 3})

	var served string
	err := fg.Execute(func(backend string) error {
		served = backend
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if served != "local-whisper" {
		t.Fatalf("served by %q, want local-whisper", served)
	}
}

func TestFallbackGroup_ChainsToFallbackOnError(t *testing.T) {
	fg := sttChain(CircuitBreakerConfig{MaxFailures: 3})

	var served string
	err := fg.Execute(func(backend string) error {
		if backend == "local-whisper" {
			return errBackendDown
		}
		served = backend
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if served != "hosted-stt" {
		t.Fatalf("served by %q, want hosted-stt", served)
	}
}

func TestFallbackGroup_AllBackendsDown(t *testing.T) {
	fg := sttChain(CircuitBreakerConfig{MaxFailures: 3})

	err := fg.Execute(func(string) error { return errBackendDown })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_RoutesAroundOpenBreaker(t *testing.T) {
	fg := sttChain(CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	// Fail the local server until its breaker trips.
	for range 2 {
		_ = fg.Execute(func(backend string) error {
			if backend == "local-whisper" {
				return errBackendDown
			}
			return nil
		})
	}

	// The next call must go straight to the hosted fallback without
	// touching the bypassed primary.
	primaryCalls := 0
	var served string
	err := fg.Execute(func(backend string) error {
		if backend == "local-whisper" {
			primaryCalls++
		}
		served = backend
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primaryCalls != 0 {
		t.Fatalf("bypassed primary was called %d times", primaryCalls)
	}
	if served != "hosted-stt" {
		t.Fatalf("served by %q, want hosted-stt", served)
	}
}

func TestExecuteWithResult_ReturnsPrimaryValue(t *testing.T) {
	fg := sttChain(CircuitBreakerConfig{MaxFailures: 3})

	transcript, err := ExecuteWithResult(fg, func(backend string) (string, error) {
		return "transcript from " + backend, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript != "transcript from local-whisper" {
		t.Fatalf("transcript = %q, want the primary's result", transcript)
	}
}

func TestExecuteWithResult_FailsOver(t *testing.T) {
	fg := sttChain(CircuitBreakerConfig{MaxFailures: 3})

	transcript, err := ExecuteWithResult(fg, func(backend string) (string, error) {
		if backend == "local-whisper" {
			return "", errBackendDown
		}
		return "transcript from " + backend, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript != "transcript from hosted-stt" {
		t.Fatalf("transcript = %q, want the fallback's result", transcript)
	}
}

func TestExecuteWithResult_AllBackendsDown(t *testing.T) {
	fg := NewFallbackGroup("local-whisper", "local-whisper", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	_, err := ExecuteWithResult(fg, func(string) (string, error) {
		return "", errBackendDown
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
