package aws

import (
	"context"
	"encoding/json"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher publishes story events to a topic.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, message []byte) error
}

type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	api snsAPI
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return &SNSClient{api: sns.NewFromConfig(cfg)}
}

// filterAttributes are copied from the JSON body into message attributes so
// subscriptions can filter without parsing the body.
var filterAttributes = []string{"event_type", "story_id", "order_id"}

// Publish sends message to topicArn with the filter attributes it carries.
func (s *SNSClient) Publish(ctx context.Context, topicArn string, message []byte) error {
	if topicArn == "" {
		return fmt.Errorf("empty topicArn")
	}
	input := &sns.PublishInput{
		TopicArn:          sdkaws.String(topicArn),
		Message:           sdkaws.String(string(message)),
		MessageAttributes: messageAttributes(message),
	}
	if _, err := s.api.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", topicArn, err)
	}
	return nil
}

func messageAttributes(message []byte) map[string]types.MessageAttributeValue {
	var body map[string]any
	if err := json.Unmarshal(message, &body); err != nil {
		return nil
	}
	var attrs map[string]types.MessageAttributeValue
	for _, name := range filterAttributes {
		v, ok := body[name].(string)
		if !ok || v == "" {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]types.MessageAttributeValue, len(filterAttributes))
		}
		attrs[name] = types.MessageAttributeValue{DataType: sdkaws.String("String"), StringValue: sdkaws.String(v)}
	}
	return attrs
}
