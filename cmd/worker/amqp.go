package main

import (
	"context"
	"sync"

	"github.com/streadway/amqp"

	"resume-insights/internal/shared/metrics"
	"resume-insights/internal/shared/telemetry"
	"resume-insights/internal/workerproc"
)

// runAMQP starts concurrency consumers over deliveries and returns when ctx
// is cancelled or the channel closes. Consumers still finishing a delivery
// are tracked on wg.
func runAMQP(ctx context.Context, deliveries <-chan amqp.Delivery, concurrency int, p workerproc.Processor, wg *sync.WaitGroup) {
	var consumers sync.WaitGroup
	for i := range max(1, concurrency) {
		consumers.Add(1)
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer consumers.Done()
			consume(ctx, id, deliveries, p)
		}(i + 1)
	}

	closed := make(chan struct{})
	go func() {
		consumers.Wait()
		close(closed)
	}()
	select {
	case <-ctx.Done():
	case <-closed:
	}
}

func consume(ctx context.Context, id int, deliveries <-chan amqp.Delivery, p workerproc.Processor) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				telemetry.Warn("worker.amqp.channel_closed", map[string]any{"consumer": id})
				return
			}
			if ctx.Err() != nil {
				requeue(d, map[string]any{
					"amqp_message_id": d.MessageId,
					"consumer":        id,
					"reason":          "shutdown",
				})
				return
			}
			metrics.IncAnalysisJobsReceived()
			handleDelivery(context.WithoutCancel(ctx), p, d)
		}
	}
}

// handleDelivery acks on success and on unusable payloads. Processing
// failures are nacked with requeue.
func handleDelivery(ctx context.Context, p workerproc.Processor, d amqp.Delivery) {
	fields := map[string]any{
		"amqp_message_id": d.MessageId,
		"redelivered":     d.Redelivered,
	}
	if d.CorrelationId != "" {
		fields["request_id"] = d.CorrelationId
	}

	err := workerproc.HandleMessage(ctx, p, string(d.Body))
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			fields["error"] = ackErr.Error()
			telemetry.Error("worker.amqp.ack_failed", fields)
			return
		}
		telemetry.Info("worker.analysis.completed", fields)
		metrics.IncAnalysisJobsCompleted()
	case workerproc.Unrecoverable(err):
		fields["error"] = err.Error()
		telemetry.Error("worker.analysis.dropped", fields)
		if ackErr := d.Ack(false); ackErr == nil {
			metrics.IncAnalysisJobsDeletedUnrecoverable()
		}
	default:
		fields["error"] = err.Error()
		telemetry.Error("worker.analysis.failed", fields)
		metrics.IncAnalysisJobsFailed()
		requeue(d, fields)
	}
}

func requeue(d amqp.Delivery, fields map[string]any) {
	if err := d.Nack(false, true); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.amqp.nack_failed", fields)
	}
}
