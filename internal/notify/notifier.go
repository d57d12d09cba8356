// Package notify announces finished research runs to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awsclient "research-workers/internal/common/aws"
	"research-workers/internal/common/logger"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunEvent is published once per pipeline run.
type RunEvent struct {
	TaskID     string    `json:"taskId"`
	Status     string    `json:"status"`
	Code       string    `json:"code,omitempty"`
	DurationMs int64     `json:"durationMs"`
	Websites   int       `json:"websites"`
	FinishedAt time.Time `json:"finishedAt"`
}

type Notifier interface {
	RunFinished(ctx context.Context, event RunEvent) error
}

type NopNotifier struct{}

func (NopNotifier) RunFinished(ctx context.Context, event RunEvent) error { return nil }

type Publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

var _ Publisher = (*awsclient.SNSClient)(nil)

// SNSNotifier publishes RunEvents as JSON to a topic. The status is also
// carried as a message attribute so subscriptions can filter on it.
type SNSNotifier struct {
	publisher Publisher
	topicARN  string
	logger    logger.Logger
}

func NewSNSNotifier(publisher Publisher, topicARN string, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		publisher: publisher,
		topicARN:  topicARN,
		logger:    log.With(map[string]interface{}{"component": "sns-notifier"}),
	}
}

func (n *SNSNotifier) RunFinished(ctx context.Context, event RunEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode run event: %w", err)
	}

	out, err := n.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.topicARN),
		Message:  awssdk.String(string(body)),
		Subject:  awssdk.String("research run " + event.Status),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"status": {DataType: awssdk.String("String"), StringValue: awssdk.String(event.Status)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}

	n.logger.Debug("run event published", map[string]interface{}{
		"taskId":    event.TaskID,
		"status":    event.Status,
		"messageId": awssdk.ToString(out.MessageId),
	})
	return nil
}
