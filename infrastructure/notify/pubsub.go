package notify

import (
	"context"

	"contentpilot/domain/model"
	"contentpilot/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// PubSubSignal publishes wake messages to a Google Pub/Sub topic. Publish-only:
// deployments using it run their dispatchers off the scheduler tick.
type PubSubSignal struct {
	client *pubsub.Client
	topic  string
}

func NewPubSubSignal(ctx context.Context, projectID, topic string) (*PubSubSignal, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &PubSubSignal{client: client, topic: topic}, nil
}

func (s *PubSubSignal) Notify(ctx context.Context, jobType model.JobType) error {
	topic := s.client.Topic(s.topic)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.GetLogger().WithField("topic", s.topic).Info("Topic does not exist - creating it")
		if _, err := s.client.CreateTopic(ctx, s.topic); err != nil {
			return err
		}
	}
	_, err = topic.Publish(ctx, &pubsub.Message{Data: []byte(jobType)}).Get(ctx)
	return err
}

func (s *PubSubSignal) Close() error { return s.client.Close() }

var _ ISignal = (*PubSubSignal)(nil)
