// Package queue forwards accepted messages to the downstream FIFO queues.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"agrinudge/internal/domain"
)

// sqsAPI is the minimal SQS interface required by Forwarder.
type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Forwarder sends queued-message envelopes to one FIFO queue. The sender id
// becomes the message group (per-user ordering); the external message id
// becomes the deduplication id (redelivery cannot duplicate downstream
// processing).
type Forwarder struct {
	api      sqsAPI
	queueURL string
}

// New creates a Forwarder for one queue.
func New(api sqsAPI, queueURL string) (*Forwarder, error) {
	if api == nil {
		return nil, errors.New("queue: api must not be nil")
	}
	if strings.TrimSpace(queueURL) == "" {
		return nil, errors.New("queue: queue URL must not be empty")
	}
	return &Forwarder{api: api, queueURL: queueURL}, nil
}

// Forward enqueues one envelope keyed by its sender and external id.
func (f *Forwarder) Forward(ctx context.Context, msg domain.QueuedMessage) error {
	if msg.From == "" || msg.WAMID == "" {
		return errors.New("queue: envelope missing sender or message id")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}
	_, err = f.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:               aws.String(f.queueURL),
		MessageBody:            aws.String(string(body)),
		MessageGroupId:         aws.String(msg.From),
		MessageDeduplicationId: aws.String(msg.WAMID),
	})
	if err != nil {
		return fmt.Errorf("queue: forward message %s: %w", msg.WAMID, err)
	}
	return nil
}
