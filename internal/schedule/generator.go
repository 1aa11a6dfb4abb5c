package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/presenced/internal/config"
	"git.home.luguber.info/inful/presenced/internal/foundation"
	"git.home.luguber.info/inful/presenced/internal/logfields"
	"git.home.luguber.info/inful/presenced/internal/retry"
)

// Generator produces the day's planned status windows. The daemon treats it
// as an opaque external producer (in practice an LLM service).
type Generator interface {
	GenerateDailySchedule(ctx context.Context, day string) ([]PlannedSlot, error)
}

// HTTPGenerator requests a daily schedule from a remote endpoint. Transient
// failures are retried per the configured backoff policy.
type HTTPGenerator struct {
	endpoint string
	client   *http.Client
	policy   retry.Policy
}

// NewHTTPGenerator builds a generator client from configuration.
func NewHTTPGenerator(cfg config.GeneratorConfig) *HTTPGenerator {
	return &HTTPGenerator{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout.Std()},
		policy:   retry.NewPolicy(retry.BackoffMode(cfg.Backoff), 0, 0, cfg.Retries),
	}
}

// GenerateDailySchedule posts the target day and decodes the returned slot
// list. An empty or undecodable response counts as a generation failure;
// the caller keeps the previous schedule.
func (g *HTTPGenerator) GenerateDailySchedule(ctx context.Context, day string) ([]PlannedSlot, error) {
	if g.endpoint == "" {
		return nil, foundation.GenerationError("no generator endpoint configured").
			WithComponent("schedule").
			Build()
	}

	var lastErr error
	for attempt := 0; attempt <= g.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := g.policy.Delay(attempt)
			slog.Debug("Retrying schedule generation",
				logfields.Day(day),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, foundation.GenerationError("schedule generation canceled").
					WithComponent("schedule").
					WithCause(ctx.Err()).
					Build()
			}
		}

		slots, err := g.requestOnce(ctx, day)
		if err == nil {
			return slots, nil
		}
		lastErr = err
	}

	return nil, foundation.GenerationError("schedule generation did not return usable data").
		WithComponent("schedule").
		WithCause(lastErr).
		WithContext(foundation.Fields{"day": day, "endpoint": g.endpoint}).
		Build()
}

func (g *HTTPGenerator) requestOnce(ctx context.Context, day string) ([]PlannedSlot, error) {
	body, err := json.Marshal(map[string]string{"day": day})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return DecodeSlots(data)
}

// DecodeSlots accepts either a bare slot array or an object wrapping one
// under "slots" (both shapes show up in generator output).
func DecodeSlots(data []byte) ([]PlannedSlot, error) {
	var slots []PlannedSlot
	if err := json.Unmarshal(data, &slots); err == nil {
		if len(slots) == 0 {
			return nil, fmt.Errorf("generator returned an empty schedule")
		}
		return slots, nil
	}

	var wrapped struct {
		Slots []PlannedSlot `json:"slots"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("undecodable generator response: %w", err)
	}
	if len(wrapped.Slots) == 0 {
		return nil, fmt.Errorf("generator returned an empty schedule")
	}
	return wrapped.Slots, nil
}
