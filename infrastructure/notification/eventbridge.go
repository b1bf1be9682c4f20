// Package notification carries mutation signals out of the process: an
// EventBridge publisher for downstream consumers and a websocket push
// dispatcher for connected backoffice clients.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"songarchive-backend/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

const signalSource = "songarchive.backoffice"

// EventBridgePublisher publishes mutation signals to an EventBridge bus.
type EventBridgePublisher struct {
	client       *eventbridge.Client
	eventBusName string
	logger       *zap.Logger
}

// NewEventBridgePublisher creates a publisher bound to the named bus.
func NewEventBridgePublisher(client *eventbridge.Client, eventBusName string, logger *zap.Logger) *EventBridgePublisher {
	return &EventBridgePublisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

var _ ports.SignalPublisher = (*EventBridgePublisher)(nil)

// Publish sends one mutation signal. The detail type is
// "<collection>.<action>" so bus rules can match per collection.
func (p *EventBridgePublisher) Publish(ctx context.Context, signal ports.MutationSignal) error {
	detail, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("failed to marshal mutation signal: %w", err)
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.eventBusName),
				Source:       aws.String(signalSource),
				DetailType:   aws.String(signal.Collection + "." + signal.Action),
				Detail:       aws.String(string(detail)),
				Time:         aws.Time(signal.OccurredAt),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish mutation signal: %w", err)
	}
	if result.FailedEntryCount > 0 {
		entry := result.Entries[0]
		return fmt.Errorf("mutation signal rejected: %s %s",
			aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
	}

	p.logger.Debug("Mutation signal published",
		zap.String("collection", signal.Collection),
		zap.String("action", signal.Action),
		zap.String("recordId", signal.RecordID),
	)
	return nil
}
