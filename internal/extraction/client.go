package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"azubimine/internal/models"
	"azubimine/internal/telemetry"
)

const (
	// Of a 15-requests-per-minute quota we use at most 14, leaving headroom
	// for clock skew between us and the service.
	quotaCeiling = 14
	quotaWindow  = 60 * time.Second

	// Minimum spacing between two calls on the same key. Only the active
	// key's clock matters; other keys are not blocked by it.
	minCallSpacing = 4 * time.Second

	// After a full rotation found every key saturated server-side, back off
	// this long and start over from the first key, at most this many times.
	exhaustedBackoff      = 30 * time.Second
	maxExhaustedRotations = 2
)

// Clock abstracts time for the rate limiter so rotation logic is testable
// with a fake clock and fake call counts.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// CallFunc performs one extraction-service call with the given API key.
type CallFunc func(ctx context.Context, apiKey, prompt string) (string, error)

// keyState tracks one API key's quota window. A key is FRESH when its window
// has elapsed, ACTIVE while callCount < ceiling, SATURATED once the ceiling
// is reached until the window resets.
type keyState struct {
	lastCall    time.Time
	callCount   int
	windowStart time.Time
}

// Client wraps the extraction service with API-key rotation, per-key quota
// tracking and backoff, falling back to the heuristic parser rather than
// failing an item. One Client owns all rotation state; it is driven by the
// single-threaded mining loop and is not safe for concurrent use.
type Client struct {
	keys       []string
	states     []keyState
	current    int
	call       CallFunc
	normalizer *ReplyNormalizer
	heuristic  *HeuristicParser
	timeout    time.Duration
	clock      Clock
	logger     *zap.Logger
	tracer     trace.Tracer
}

type ClientOption func(*Client)

// WithClock replaces the wall clock, for tests.
func WithClock(clock Clock) ClientOption {
	return func(c *Client) { c.clock = clock }
}

// WithCallFunc replaces the service call, for tests or alternative backends.
func WithCallFunc(call CallFunc) ClientOption {
	return func(c *Client) { c.call = call }
}

func NewClient(
	apiKeys []string,
	model string,
	timeout time.Duration,
	normalizer *ReplyNormalizer,
	heuristic *HeuristicParser,
	logger *zap.Logger,
	opts ...ClientOption,
) *Client {
	c := &Client{
		keys:       apiKeys,
		states:     make([]keyState, len(apiKeys)),
		call:       geminiCall(model),
		normalizer: normalizer,
		heuristic:  heuristic,
		timeout:    timeout,
		clock:      systemClock{},
		logger:     logger,
		tracer:     telemetry.GetTracer("azubimine/extraction"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze extracts a canonical posting from one page. It never returns an
// error: every failure path degrades to the heuristic parser, and only when
// that also finds nothing does the caller get nil. A single bad item must
// never abort the mining run.
func (c *Client) Analyze(ctx context.Context, rawHTML, cleanedText, sourceURL, sourcePlatform string) *models.JobPosting {
	ctx, span := c.tracer.Start(ctx, "Analyze")
	defer span.End()
	span.SetAttributes(telemetry.String("posting.url", sourceURL))

	if len(c.keys) == 0 {
		c.logger.Warn("no extraction keys configured, using heuristic parser",
			zap.String("url", sourceURL))
		return c.heuristic.Parse(rawHTML, sourceURL, sourcePlatform)
	}

	reply, err := c.callWithRotation(ctx, BuildPrompt(cleanedText))
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("extraction service failed, falling back to heuristic parser",
			zap.String("url", sourceURL),
			zap.Error(err))
		return c.heuristic.Parse(rawHTML, sourceURL, sourcePlatform)
	}

	posting, err := c.normalizer.Normalize(reply, sourceURL, sourcePlatform)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("extraction reply rejected, falling back to heuristic parser",
			zap.String("url", sourceURL),
			zap.Error(err))
		return c.heuristic.Parse(rawHTML, sourceURL, sourcePlatform)
	}

	span.SetAttributes(telemetry.String("extraction.method", posting.ExtractionMethod))
	return posting
}

// callWithRotation performs one logical extraction call, rotating across
// keys on quota errors. Retries are a bounded loop, not recursion: at most
// one attempt per key per rotation, and at most maxExhaustedRotations full
// restarts after a 30s backoff.
func (c *Client) callWithRotation(ctx context.Context, prompt string) (string, error) {
	rotations := 0
	attemptsThisRotation := 0

	for {
		idx := c.acquireKey()
		c.throttle(idx)
		c.recordCall(idx)

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		reply, err := c.call(callCtx, c.keys[idx], prompt)
		cancel()

		if err == nil {
			return reply, nil
		}

		if !isQuotaError(err) {
			// Anything that is not a quota signal will not get better on
			// another key.
			return "", fmt.Errorf("extraction call failed: %w", err)
		}

		c.saturate(idx)
		attemptsThisRotation++
		c.logger.Info("extraction key saturated, rotating",
			zap.Int("key_index", idx),
			zap.Int("attempts_this_rotation", attemptsThisRotation))

		if attemptsThisRotation >= len(c.keys) {
			rotations++
			if rotations > maxExhaustedRotations {
				return "", fmt.Errorf("all extraction keys exhausted after %d rotations: %w", rotations, err)
			}
			c.logger.Warn("all extraction keys exhausted, backing off",
				zap.Duration("backoff", exhaustedBackoff),
				zap.Int("rotation", rotations))
			c.clock.Sleep(exhaustedBackoff)
			c.current = 0
			attemptsThisRotation = 0
			continue
		}

		c.current = (idx + 1) % len(c.keys)
	}
}

// acquireKey finds a key with quota left, rotating round-robin from the
// current index. When every key is saturated it sleeps until the soonest
// window reset, after which that key has a full quota again.
func (c *Client) acquireKey() int {
	now := c.clock.Now()

	for offset := 0; offset < len(c.keys); offset++ {
		idx := (c.current + offset) % len(c.keys)
		state := &c.states[idx]
		if now.Sub(state.windowStart) >= quotaWindow {
			state.windowStart = now
			state.callCount = 0
		}
		if state.callCount < quotaCeiling {
			c.current = idx
			return idx
		}
	}

	// Every key saturated locally: wait for the earliest window to expire.
	soonest := 0
	for i := range c.states {
		if c.states[i].windowStart.Before(c.states[soonest].windowStart) {
			soonest = i
		}
	}
	wait := quotaWindow - now.Sub(c.states[soonest].windowStart)
	if wait > 0 {
		c.logger.Info("all extraction keys at quota ceiling, waiting for window reset",
			zap.Duration("wait", wait),
			zap.Int("key_index", soonest))
		c.clock.Sleep(wait)
	}

	state := &c.states[soonest]
	state.windowStart = c.clock.Now()
	state.callCount = 0
	c.current = soonest
	return soonest
}

// throttle enforces the minimum spacing between calls on one key.
func (c *Client) throttle(idx int) {
	state := &c.states[idx]
	if state.lastCall.IsZero() {
		return
	}
	elapsed := c.clock.Now().Sub(state.lastCall)
	if elapsed < minCallSpacing {
		c.clock.Sleep(minCallSpacing - elapsed)
	}
}

// recordCall stamps the key before the result is interpreted, so a failed
// call still counts against the quota.
func (c *Client) recordCall(idx int) {
	now := c.clock.Now()
	state := &c.states[idx]
	if state.callCount == 0 {
		state.windowStart = now
	}
	state.callCount++
	state.lastCall = now
}

// saturate marks a key as spent for the remainder of its window after the
// service reported quota exhaustion for it.
func (c *Client) saturate(idx int) {
	c.states[idx].callCount = quotaCeiling
}

func isQuotaError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "resource has been exhausted")
}

// geminiCall returns the production CallFunc backed by the Gemini API. Each
// key gets its own short-lived client; the keys are interchangeable beyond
// their separate quotas.
func geminiCall(model string) CallFunc {
	return func(ctx context.Context, apiKey, prompt string) (string, error) {
		client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return "", fmt.Errorf("creating gemini client: %w", err)
		}
		defer client.Close()

		resp, err := client.GenerativeModel(model).GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("empty gemini response")
		}

		var out strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out.WriteString(string(text))
			}
		}
		return out.String(), nil
	}
}
