package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types accepted on the trigger subscription.
const (
	JobCorridorRefresh = "corridor_refresh"
	JobHealthCheck     = "health_check"
)

// ErrUnknownJob is returned by Handle for unrecognized job types. Such
// messages are acked so they are not redelivered.
var ErrUnknownJob = errors.New("unknown job type")

// RefreshMessage is a corridor refresh trigger.
type RefreshMessage struct {
	JobType string `json:"job_type"`

	// Corridors overrides the configured corridors ("Start>Destination").
	Corridors []string `json:"corridors,omitempty"`
}

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       NewDispatcher(cfg.RefreshJob, cfg.Logger),
		logger:           cfg.Logger,
	}, nil
}

// Start processes messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	err := h.dispatcher.Handle(ctx, msg.Data)
	switch {
	case errors.Is(err, ErrUnknownJob):
		logger.Warn().Err(err).Msg("dropping message")
		msg.Ack()
	case err != nil:
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
	default:
		logger.Info().Dur("duration", time.Since(startTime)).Msg("job completed successfully")
		msg.Ack()
	}
}

// Dispatcher decodes trigger payloads and runs the matching job. It is
// shared by the Pub/Sub handler and tests.
type Dispatcher struct {
	job    *RefreshJob
	logger zerolog.Logger
}

// NewDispatcher creates a Dispatcher for job.
func NewDispatcher(job *RefreshJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{job: job, logger: logger}
}

// Handle runs the job described by data. Malformed payloads and unknown job
// types wrap ErrUnknownJob.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) error {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", ErrUnknownJob, err)
	}

	switch msg.JobType {
	case JobCorridorRefresh:
		return d.refresh(ctx, msg)
	case JobHealthCheck:
		return d.healthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

func (d *Dispatcher) refresh(ctx context.Context, msg RefreshMessage) error {
	corridors := d.job.Corridors()
	if len(msg.Corridors) > 0 {
		parsed, err := ParseCorridors(msg.Corridors)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownJob, err)
		}
		corridors = parsed
	}

	result := d.job.RunCorridors(ctx, corridors)

	// Retry only when most corridors failed; partial failures heal on the next run.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many corridor failures: %d/%d", result.Failed, result.TotalCorridors)
	}
	return nil
}

// healthCheck warms the first corridor only to verify provider connectivity.
func (d *Dispatcher) healthCheck(ctx context.Context) error {
	corridors := d.job.Corridors()
	if len(corridors) == 0 {
		return nil
	}
	result := d.job.RunCorridors(ctx, corridors[:1])
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %s", result.Errors[0].Error)
	}
	d.logger.Debug().Msg("health check passed")
	return nil
}
