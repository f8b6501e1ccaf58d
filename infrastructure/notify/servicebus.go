package notify

import (
	"context"

	"contentpilot/domain/model"
	"contentpilot/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// ServiceBusSignal publishes wake messages to an Azure Service Bus queue.
// Publish-only, like PubSubSignal.
type ServiceBusSignal struct {
	client *azservicebus.Client
	queue  string
}

func NewServiceBusSignal(namespace, queue string) (*ServiceBusSignal, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	client, err := azservicebus.NewClient(namespace, cred, nil)
	if err != nil {
		return nil, err
	}
	return &ServiceBusSignal{client: client, queue: queue}, nil
}

func (s *ServiceBusSignal) Notify(ctx context.Context, jobType model.JobType) error {
	sender, err := s.client.NewSender(s.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return err
	}
	defer func() {
		if err := sender.Close(context.Background()); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
		}
	}()
	return sender.SendMessage(ctx, &azservicebus.Message{Body: []byte(jobType)}, nil)
}

func (s *ServiceBusSignal) Close(ctx context.Context) error { return s.client.Close(ctx) }

var _ ISignal = (*ServiceBusSignal)(nil)
