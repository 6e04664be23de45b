package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/book-expert/avatar-service/internal/core"
)

// NatsClient submits synthesis jobs to workers with NATS request/reply.
type NatsClient struct {
	natsConnection *nats.Conn
	subject        string
	timeout        time.Duration
}

// NewNatsClient creates a client. timeout bounds a single round trip; zero leaves it to ctx.
func NewNatsClient(natsConnection *nats.Conn, subject string, timeout time.Duration) *NatsClient {
	return &NatsClient{
		natsConnection: natsConnection,
		subject:        subject,
		timeout:        timeout,
	}
}

// Submit sends req and waits for the worker's reply. A job failure is reported in the
// returned event's Error field, not as an error.
func (c *NatsClient) Submit(ctx context.Context, req core.SynthesisRequest) (*core.VideoCreatedEvent, error) {
	event := core.SynthesisRequestedEvent{
		Header:  core.NewEventHeader(req.WorkID),
		Request: req,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis event: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := c.natsConnection.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		return nil, fmt.Errorf("synthesis request on subject %s failed: %w", c.subject, err)
	}

	var reply core.VideoCreatedEvent

	err = json.Unmarshal(msg.Data, &reply)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal reply event: %w", err)
	}

	return &reply, nil
}
