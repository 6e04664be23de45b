// Package worker provides the NATS worker that runs avatar synthesis jobs and the client that
// submits them.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/avatar-service/internal/core"
)

const queueGroup = "avatar-workers"

// Log formats.
const (
	logFmtSubscribed     = "Listening for synthesis jobs on subject %s (queue %s)"
	logFmtJobReceived    = "Received synthesis job for workflow %s"
	logFmtJobFailed      = "Synthesis job for workflow %s failed: %v"
	logFmtJobSucceeded   = "Synthesis job for workflow %s produced %s"
	logFmtParseFailed    = "Failed to parse synthesis event: %v"
	logFmtReplyFailed    = "Failed to publish reply event for workflow %s: %v"
	logFmtNoReplySubject = "Synthesis event for workflow %s has no reply subject, result is not delivered"
)

var (
	// ErrNoReplySubject indicates a message that cannot be answered.
	ErrNoReplySubject = errors.New("message has no reply subject")
	// ErrJobPanicked indicates a job that panicked; the worker keeps serving.
	ErrJobPanicked = errors.New("synthesis job panicked")
)

// JobRunner runs one synthesis job.
type JobRunner interface {
	Run(ctx context.Context, req core.SynthesisRequest) (*core.SynthesisResult, error)
}

// NatsWorker listens for synthesis jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	runner         JobRunner
	jobTimeout     time.Duration
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker. A zero jobTimeout means no limit.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	runner JobRunner,
	jobTimeout time.Duration,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		runner:         runner,
		jobTimeout:     jobTimeout,
		log:            log,
	}
}

// Run subscribes and handles messages until ctx is done, then drains the subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.QueueSubscribe(w.subject, queueGroup, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info(logFmtSubscribed, w.subject, queueGroup)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	event, err := parseEvent(msg)
	if err != nil {
		w.log.Error(logFmtParseFailed, err)
		w.respond(msg, &core.VideoCreatedEvent{
			Header: core.NewEventHeader(""),
			Result: nil,
			Error:  err.Error(),
		})

		return
	}

	w.log.Info(logFmtJobReceived, event.Header.WorkflowID)

	if event.Request.WorkID == "" {
		event.Request.WorkID = event.Header.WorkflowID
	}

	reply := &core.VideoCreatedEvent{
		Header: core.ReplyHeader(event.Header),
		Result: nil,
		Error:  "",
	}

	result, err := w.runJob(event.Request)
	if err != nil {
		w.log.Error(logFmtJobFailed, event.Header.WorkflowID, err)
		reply.Error = err.Error()
	} else {
		w.log.Info(logFmtJobSucceeded, event.Header.WorkflowID, result.VideoKey)
		reply.Result = result
	}

	w.respond(msg, reply)
}

func (w *NatsWorker) runJob(req core.SynthesisRequest) (result *core.SynthesisResult, err error) {
	defer func() {
		recovered := recover()
		if recovered != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrJobPanicked, recovered)
		}
	}()

	ctx := context.Background()

	if w.jobTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	return w.runner.Run(ctx, req)
}

func (w *NatsWorker) respond(msg *nats.Msg, reply *core.VideoCreatedEvent) {
	err := publishReplyEvent(msg, reply)
	if errors.Is(err, ErrNoReplySubject) {
		w.log.Warn(logFmtNoReplySubject, reply.Header.WorkflowID)

		return
	}

	if err != nil {
		w.log.Error(logFmtReplyFailed, reply.Header.WorkflowID, err)
	}
}

// publishReplyEvent marshals and responds with the VideoCreatedEvent.
func publishReplyEvent(msg *nats.Msg, replyEvent *core.VideoCreatedEvent) error {
	if msg.Reply == "" {
		return ErrNoReplySubject
	}

	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseEvent(msg *nats.Msg) (*core.SynthesisRequestedEvent, error) {
	var event core.SynthesisRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.Header.WorkflowID == "" {
		event.Header = core.NewEventHeader(event.Request.WorkID)
	}

	return &event, nil
}
