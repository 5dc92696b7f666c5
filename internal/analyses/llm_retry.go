package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"resume-insights/internal/llm"
	"resume-insights/internal/shared/telemetry"
)

const llmRetryBaseDelay = 300 * time.Millisecond

// retryingLLM retries a transient provider failure once.
type retryingLLM struct {
	base       llm.Client
	requestID  string
	analysisID string
	delay      time.Duration
}

func newRetryingLLM(base llm.Client, analysisID, requestID string, delay time.Duration) llm.Client {
	if base == nil {
		return nil
	}
	if delay <= 0 {
		delay = llmRetryBaseDelay
	}
	return retryingLLM{
		base:       base,
		requestID:  requestID,
		analysisID: analysisID,
		delay:      delay,
	}
}

func (r retryingLLM) AnalyzeResume(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	resp, err := r.base.AnalyzeResume(ctx, input)
	if err == nil || !shouldRetryLLM(err) {
		return resp, err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"request_id":  r.requestID,
		"analysis_id": r.analysisID,
		"attempt":     1,
		"error":       sanitizeError(err),
	})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.base.AnalyzeResume(ctx, input)
}

func shouldRetryLLM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "http status 429") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "request timeout") || strings.Contains(msg, "client.timeout") {
		return true
	}
	for _, transient := range []string{"connection reset", "connection refused", "connection closed", "broken pipe", "tls handshake timeout", "unexpected eof"} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}
