package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-insights/internal/queue"
)

type processorFunc func(ctx context.Context, analysisID string) error

func (f processorFunc) ProcessAnalysis(ctx context.Context, analysisID string) error {
	return f(ctx, analysisID)
}

func TestProcessBatchReportsOnlyRetryableFailures(t *testing.T) {
	body := func(id string) string {
		b, err := queue.EncodeMessage(queue.NewMessage(id, "req", time.Now()))
		require.NoError(t, err)
		return string(b)
	}
	p := processorFunc(func(ctx context.Context, analysisID string) error {
		if analysisID == "fails" {
			return errors.New("storage unavailable")
		}
		return nil
	})
	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "ok", Body: body("ok")},
		{MessageId: "retry", Body: body("fails")},
		{MessageId: "garbage", Body: "{"},
		{MessageId: "empty", Body: ""},
	}}

	resp := processBatch(context.Background(), p, event)

	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "retry", resp.BatchItemFailures[0].ItemIdentifier)
}
