// Package queue publishes analysis jobs to SQS or RabbitMQ.
package queue

import (
	"context"
	"errors"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Settings selects and configures a backend. SQS wins when both are set.
type Settings struct {
	SQSQueueURL string
	AWSRegion   string
	AMQPURL     string
	AMQPQueue   string
}

// ErrNotConfigured is returned by New when no backend is set.
var ErrNotConfigured = errors.New("queue not configured")

// New returns the configured backend and a close func. The close func is
// never nil.
func New(ctx context.Context, s Settings) (Client, func() error, error) {
	noop := func() error { return nil }
	switch {
	case s.SQSQueueURL != "":
		c, err := NewSQSClient(ctx, s.SQSQueueURL, s.AWSRegion)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	case s.AMQPURL != "":
		c, err := DialAMQP(s.AMQPURL, s.AMQPQueue)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	default:
		return nil, noop, ErrNotConfigured
	}
}
