package extraction

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"azubimine/internal/models"
	"azubimine/internal/salary"
)

type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(d time.Duration) {
	f.slept = append(f.slept, d)
	f.now = f.now.Add(d)
}

func (f *fakeClock) totalSlept() time.Duration {
	var total time.Duration
	for _, d := range f.slept {
		total += d
	}
	return total
}

// callRecord captures which key served a call and when.
type callRecord struct {
	key string
	at  time.Time
}

const validReply = `{"title": "Ausbildung zur Fachkraft", "company_name": "Test AG", "locations": [{"city": "Hamburg"}]}`

const sampleHTML = `<html><head><title>Ausbildung zur Fachkraft (m/w/d) bei Test AG</title></head><body><h1>Ausbildung zur Fachkraft (m/w/d) bei Test AG</h1></body></html>`

func newTestClient(t *testing.T, keys []string, clock *fakeClock, call CallFunc) *Client {
	t.Helper()
	logger := zap.NewNop()
	normalizer := NewReplyNormalizer(salary.NewResolver(nil, logger), logger)
	heuristic := NewHeuristicParser(logger)
	return NewClient(keys, "test-model", time.Minute, normalizer, heuristic, logger,
		WithClock(clock), WithCallFunc(call))
}

func TestAnalyzeNoKeysUsesHeuristic(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := newTestClient(t, nil, clock, func(ctx context.Context, key, prompt string) (string, error) {
		t.Fatal("service called with zero keys configured")
		return "", nil
	})

	posting := c.Analyze(context.Background(), sampleHTML, "cleaned", "https://x.de/1", "ausbildung.de")
	if posting == nil {
		t.Fatal("heuristic fallback produced nothing")
	}
	if posting.ExtractionMethod != models.ExtractedByHeuristic {
		t.Errorf("extraction method = %q, want heuristic", posting.ExtractionMethod)
	}
	if posting.CompanyName != "Test AG" {
		t.Errorf("company = %q", posting.CompanyName)
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var calls []callRecord
	c := newTestClient(t, []string{"key-a"}, clock, func(ctx context.Context, key, prompt string) (string, error) {
		calls = append(calls, callRecord{key, clock.now})
		return validReply, nil
	})

	posting := c.Analyze(context.Background(), sampleHTML, "cleaned", "https://x.de/1", "ausbildung.de")
	if posting == nil {
		t.Fatal("expected posting")
	}
	if posting.ExtractionMethod != models.ExtractedByLLM {
		t.Errorf("extraction method = %q, want llm", posting.ExtractionMethod)
	}
	if len(calls) != 1 {
		t.Errorf("service called %d times, want 1", len(calls))
	}
}

func TestAnalyzeBadReplyFallsBackToHeuristic(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := newTestClient(t, []string{"key-a"}, clock, func(ctx context.Context, key, prompt string) (string, error) {
		return "sorry, I cannot help with that", nil
	})

	posting := c.Analyze(context.Background(), sampleHTML, "cleaned", "https://x.de/1", "ausbildung.de")
	if posting == nil {
		t.Fatal("expected heuristic fallback posting")
	}
	if posting.ExtractionMethod != models.ExtractedByHeuristic {
		t.Errorf("extraction method = %q, want heuristic", posting.ExtractionMethod)
	}
}

func TestAnalyzeNonQuotaErrorFallsBackImmediately(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	calls := 0
	c := newTestClient(t, []string{"key-a", "key-b"}, clock, func(ctx context.Context, key, prompt string) (string, error) {
		calls++
		return "", errors.New("500 internal error")
	})

	posting := c.Analyze(context.Background(), sampleHTML, "cleaned", "https://x.de/1", "ausbildung.de")
	if posting == nil {
		t.Fatal("expected heuristic fallback posting")
	}
	if calls != 1 {
		t.Errorf("service called %d times, want 1 (no rotation on non-quota errors)", calls)
	}
}

func TestQuotaErrorRotatesKeys(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var calls []callRecord
	c := newTestClient(t, []string{"key-a", "key-b"}, clock, func(ctx context.Context, key, prompt string) (string, error) {
		calls = append(calls, callRecord{key, clock.now})
		if key == "key-a" {
			return "", errors.New("429 too many requests")
		}
		return validReply, nil
	})

	posting := c.Analyze(context.Background(), sampleHTML, "cleaned", "https://x.de/1", "ausbildung.de")
	if posting == nil || posting.ExtractionMethod != models.ExtractedByLLM {
		t.Fatalf("expected llm posting after rotation, got %+v", posting)
	}
	if len(calls) != 2 || calls[0].key != "key-a" || calls[1].key != "key-b" {
		t.Errorf("calls = %+v, want key-a then key-b", calls)
	}
}

func TestAllKeysExhaustedBacksOffThenRetries(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var calls []callRecord
	c := newTestClient(t, []string{"key-a", "key-b"}, clock, func(ctx context.Context, key, prompt string) (string, error) {
		calls = append(calls, callRecord{key, clock.now})
		// Both keys report quota on the first rotation; after the backoff
		// the first key succeeds.
		if len(calls) <= 2 {
			return "", errors.New("quota exceeded")
		}
		return validReply, nil
	})

	posting := c.Analyze(context.Background(), sampleHTML, "cleaned", "https://x.de/1", "ausbildung.de")
	if posting == nil || posting.ExtractionMethod != models.ExtractedByLLM {
		t.Fatalf("expected llm posting after backoff, got %+v", posting)
	}

	foundBackoff := false
	for _, d := range clock.slept {
		if d == exhaustedBackoff {
			foundBackoff = true
		}
	}
	if !foundBackoff {
		t.Errorf("no %v backoff sleep recorded, sleeps: %v", exhaustedBackoff, clock.slept)
	}
}

func TestExhaustedRotationsBoundedThenHeuristic(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	calls := 0
	c := newTestClient(t, []string{"key-a"}, clock, func(ctx context.Context, key, prompt string) (string, error) {
		calls++
		return "", errors.New("quota exceeded")
	})

	posting := c.Analyze(context.Background(), sampleHTML, "cleaned", "https://x.de/1", "ausbildung.de")
	if posting == nil {
		t.Fatal("expected heuristic fallback posting")
	}
	if posting.ExtractionMethod != models.ExtractedByHeuristic {
		t.Errorf("extraction method = %q, want heuristic", posting.ExtractionMethod)
	}
	// One attempt per rotation with a single key: initial + maxExhaustedRotations.
	if calls != 1+maxExhaustedRotations {
		t.Errorf("service called %d times, want %d", calls, 1+maxExhaustedRotations)
	}
}

func TestMinimumCallSpacingEnforced(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var calls []callRecord
	c := newTestClient(t, []string{"key-a"}, clock, func(ctx context.Context, key, prompt string) (string, error) {
		calls = append(calls, callRecord{key, clock.now})
		return validReply, nil
	})

	for i := 0; i < 3; i++ {
		if p := c.Analyze(context.Background(), sampleHTML, "cleaned", fmt.Sprintf("https://x.de/%d", i), "ausbildung.de"); p == nil {
			t.Fatal("expected posting")
		}
	}

	for i := 1; i < len(calls); i++ {
		gap := calls[i].at.Sub(calls[i-1].at)
		if gap < minCallSpacing {
			t.Errorf("call %d only %v after previous, want >= %v", i, gap, minCallSpacing)
		}
	}
}

func TestQuotaCeilingNeverExceededPerWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	callTimes := map[string][]time.Time{}
	c := newTestClient(t, []string{"key-a", "key-b", "key-c"}, clock, func(ctx context.Context, key, prompt string) (string, error) {
		callTimes[key] = append(callTimes[key], clock.now)
		return validReply, nil
	})

	// Far more calls than three keys can serve in one window.
	for i := 0; i < 100; i++ {
		if p := c.Analyze(context.Background(), sampleHTML, "cleaned", fmt.Sprintf("https://x.de/%d", i), "ausbildung.de"); p == nil {
			t.Fatal("expected posting")
		}
	}

	for key, times := range callTimes {
		for i := range times {
			inWindow := 1
			for j := i + 1; j < len(times); j++ {
				if times[j].Sub(times[i]) < quotaWindow {
					inWindow++
				}
			}
			if inWindow > quotaCeiling {
				t.Fatalf("key %s served %d calls within one %v window, ceiling is %d",
					key, inWindow, quotaWindow, quotaCeiling)
			}
		}
	}
}

func TestAllKeysSaturatedSleepsUntilWindowReset(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	served := 0
	c := newTestClient(t, []string{"key-a", "key-b", "key-c"}, clock, func(ctx context.Context, key, prompt string) (string, error) {
		served++
		return validReply, nil
	})

	// Saturate all three keys locally.
	for i := range c.states {
		c.states[i].callCount = quotaCeiling
		c.states[i].windowStart = clock.now
		c.states[i].lastCall = clock.now
	}

	posting := c.Analyze(context.Background(), sampleHTML, "cleaned", "https://x.de/1", "ausbildung.de")
	if posting == nil || posting.ExtractionMethod != models.ExtractedByLLM {
		t.Fatalf("expected llm posting after window reset, got %+v", posting)
	}
	if served != 1 {
		t.Errorf("service called %d times, want 1", served)
	}
	if clock.totalSlept() < quotaWindow {
		t.Errorf("slept %v total, want at least the %v window", clock.totalSlept(), quotaWindow)
	}
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("429 too many requests"), true},
		{errors.New("Quota exceeded for quota metric"), true},
		{errors.New("RESOURCE has been EXHAUSTED"), true},
		{errors.New("connection refused"), false},
		{errors.New("invalid argument"), false},
	}
	for _, tt := range tests {
		if got := isQuotaError(tt.err); got != tt.want {
			t.Errorf("isQuotaError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
