package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

const (
	sqsWaitSeconds       = 20
	sqsVisibilitySeconds = 60
	sqsBatchSize         = 10
	sqsErrorBackoff      = 2 * time.Second

	// MaxDeliveries is how often a message is handed to the handler before
	// it is dropped.
	MaxDeliveries = 5
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, in *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

// SQSQueue sends to and long-polls a single SQS queue.
type SQSQueue struct {
	api      sqsAPI
	queueURL string
	backoff  time.Duration
	logger   *zap.Logger
}

func NewSQSQueue(cfg sdkaws.Config, queueURL string, logger *zap.Logger) *SQSQueue {
	return newSQSQueue(sqs.NewFromConfig(cfg), queueURL, logger)
}

func newSQSQueue(api sqsAPI, queueURL string, logger *zap.Logger) *SQSQueue {
	return &SQSQueue{api: api, queueURL: queueURL, backoff: sqsErrorBackoff, logger: logger}
}

// MessageHandler processes one message body. Returning an error leaves the
// message on the queue until its visibility timeout expires.
type MessageHandler func(ctx context.Context, body string) error

// StartPolling polls until ctx is cancelled.
func (q *SQSQueue) StartPolling(ctx context.Context, handler MessageHandler) error {
	log := q.logger.With(zap.String("queue_url", q.queueURL))
	log.Info("Starting SQS polling")

	for {
		if err := ctx.Err(); err != nil {
			log.Info("SQS polling stopped")
			return err
		}
		err := q.pollOnce(ctx, handler)
		if err == nil || errors.Is(err, context.Canceled) {
			continue
		}
		log.Warn("Error polling SQS", zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(q.backoff):
		}
	}
}

func (q *SQSQueue) pollOnce(ctx context.Context, handler MessageHandler) error {
	result, err := q.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    sdkaws.String(q.queueURL),
		MaxNumberOfMessages:         sqsBatchSize,
		WaitTimeSeconds:             sqsWaitSeconds,
		VisibilityTimeout:           sqsVisibilitySeconds,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameApproximateReceiveCount},
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	var done []types.DeleteMessageBatchRequestEntry
	for i, msg := range result.Messages {
		if q.handle(ctx, msg, handler) {
			done = append(done, types.DeleteMessageBatchRequestEntry{
				Id:            sdkaws.String(strconv.Itoa(i)),
				ReceiptHandle: msg.ReceiptHandle,
			})
		}
	}
	return q.deleteBatch(ctx, done)
}

// handle reports whether msg should be removed from the queue.
func (q *SQSQueue) handle(ctx context.Context, msg types.Message, handler MessageHandler) bool {
	id := sdkaws.ToString(msg.MessageId)
	if msg.Body == nil {
		return true
	}
	err := handler(ctx, *msg.Body)
	if err == nil {
		return true
	}

	deliveries := receiveCount(msg)
	if deliveries >= MaxDeliveries {
		q.logger.Error("Dropping SQS message after repeated failures",
			zap.String("message_id", id),
			zap.Int("deliveries", deliveries),
			zap.Error(err),
		)
		return true
	}
	q.logger.Warn("Failed to process SQS message",
		zap.String("message_id", id),
		zap.Int("deliveries", deliveries),
		zap.Error(err),
	)
	return false
}

func (q *SQSQueue) deleteBatch(ctx context.Context, entries []types.DeleteMessageBatchRequestEntry) error {
	if len(entries) == 0 {
		return nil
	}
	out, err := q.api.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: sdkaws.String(q.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	for _, f := range out.Failed {
		q.logger.Warn("Failed to delete SQS message",
			zap.String("entry", sdkaws.ToString(f.Id)),
			zap.String("code", sdkaws.ToString(f.Code)),
		)
	}
	return nil
}

func receiveCount(msg types.Message) int {
	n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil {
		return 1
	}
	return n
}

// SendMessage sends a single message to the queue.
func (q *SQSQueue) SendMessage(ctx context.Context, body string) error {
	if _, err := q.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    sdkaws.String(q.queueURL),
		MessageBody: sdkaws.String(body),
	}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
