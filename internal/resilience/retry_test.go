package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), Fixed(3, time.Millisecond), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), Fixed(3, time.Millisecond), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewServiceError("openai", 503, errors.New("temporary"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	err := Do(context.Background(), Fixed(3, time.Millisecond), func(_ context.Context) error {
		calls++
		return NewServiceError("openai", 500, errors.New("always fails"))
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ValidationError_NoRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), Fixed(3, time.Millisecond), func(_ context.Context) error {
		calls++
		return NewValidationError("Geen CV tekst gevonden")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call (no retry for validation errors), got %d", calls)
	}
}

func TestDo_NonTransientServiceError_NoRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), Fixed(3, time.Millisecond), func(_ context.Context) error {
		calls++
		return NewServiceError("openai", 401, errors.New("invalid api key"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call (401 is terminal), got %d", calls)
	}
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := Do(ctx, Fixed(5, 50*time.Millisecond), func(_ context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return NewServiceError("openai", 0, errors.New("fail"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls > 3 {
		t.Errorf("expected retries to stop after cancel, got %d calls", calls)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	got, err := DoVal(context.Background(), Fixed(3, time.Millisecond), func(_ context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", NewServiceError("openai", 429, errors.New("rate limited"))
		}
		return "antwoord", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "antwoord" {
		t.Errorf("expected value from successful attempt, got %q", got)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDoVal_ShouldRetryOverride(t *testing.T) {
	var calls int
	cfg := Fixed(3, time.Millisecond)
	cfg.ShouldRetry = func(error) bool { return false }

	_, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, NewServiceError("pdok", 500, errors.New("boom"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected override to suppress retries, got %d calls", calls)
	}
}

func TestFixed_BackoffIsConstant(t *testing.T) {
	cfg := applyDefaults(Fixed(3, 60*time.Second))
	for attempt := 0; attempt < 3; attempt++ {
		if d := computeBackoff(attempt, cfg); d != 60*time.Second {
			t.Errorf("attempt %d: expected fixed 60s backoff, got %v", attempt, d)
		}
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	var retries []int
	cfg := Fixed(3, time.Millisecond)
	cfg.OnRetry = func(attempt int, _ error) {
		retries = append(retries, attempt)
	}

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return NewServiceError("openai", 502, errors.New("bad gateway"))
	})
	if len(retries) != 2 {
		t.Fatalf("expected 2 retry callbacks, got %d", len(retries))
	}
	if retries[0] != 1 || retries[1] != 2 {
		t.Errorf("expected attempts [1 2], got %v", retries)
	}
}
