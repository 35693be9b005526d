package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

const (
	defaultLogGroup     = "/valentine/story-service"
	logRetentionDays    = 30
	maxLogBatch         = 100
	logFlushInterval    = 5 * time.Second
	logFlushCallTimeout = 5 * time.Second
)

type cloudWatchLogsAPI interface {
	CreateLogGroup(ctx context.Context, in *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutRetentionPolicy(ctx context.Context, in *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
	PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatchLogsClient ships log lines to a CloudWatch Logs stream. Lines are
// buffered and sent in batches by Run, or as soon as a batch is full. It
// implements io.Writer so it can be tee'd into a zap core.
type CloudWatchLogsClient struct {
	api    cloudWatchLogsAPI
	group  string
	stream string
	now    func() time.Time

	mu      sync.Mutex
	pending []types.InputLogEvent
	sendMu  sync.Mutex
}

// NewCloudWatchLogsClient ensures the group and a fresh stream for this
// process exist.
func NewCloudWatchLogsClient(ctx context.Context, cfg sdkaws.Config, logGroupName, serviceName string) (*CloudWatchLogsClient, error) {
	return newCloudWatchLogsClient(ctx, cloudwatchlogs.NewFromConfig(cfg), logGroupName, serviceName)
}

func newCloudWatchLogsClient(ctx context.Context, api cloudWatchLogsAPI, group, serviceName string) (*CloudWatchLogsClient, error) {
	if group == "" {
		group = defaultLogGroup
	}
	host, _ := os.Hostname()
	c := &CloudWatchLogsClient{
		api:    api,
		group:  group,
		stream: fmt.Sprintf("%s/%s/%d", serviceName, host, time.Now().Unix()),
		now:    time.Now,
	}
	if err := c.ensureGroup(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure log group: %w", err)
	}
	if _, err := api.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  sdkaws.String(c.group),
		LogStreamName: sdkaws.String(c.stream),
	}); err != nil {
		return nil, fmt.Errorf("failed to create log stream: %w", err)
	}
	return c, nil
}

func (c *CloudWatchLogsClient) ensureGroup(ctx context.Context) error {
	_, err := c.api.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: sdkaws.String(c.group)})
	var exists *types.ResourceAlreadyExistsException
	switch {
	case errors.As(err, &exists):
		return nil
	case err != nil:
		return err
	}
	if _, err := c.api.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    sdkaws.String(c.group),
		RetentionInDays: sdkaws.Int32(logRetentionDays),
	}); err != nil {
		return fmt.Errorf("failed to set retention policy: %w", err)
	}
	return nil
}

// Write queues p as one log event. It never fails the caller.
func (c *CloudWatchLogsClient) Write(p []byte) (int, error) {
	c.mu.Lock()
	c.pending = append(c.pending, types.InputLogEvent{
		Message:   sdkaws.String(string(p)),
		Timestamp: sdkaws.Int64(c.now().UnixMilli()),
	})
	full := len(c.pending) >= maxLogBatch
	c.mu.Unlock()

	if full {
		ctx, cancel := context.WithTimeout(context.Background(), logFlushCallTimeout)
		defer cancel()
		c.Flush(ctx)
	}
	return len(p), nil
}

// Flush sends every queued event. A rejected batch is dropped and reported
// on stderr.
func (c *CloudWatchLogsClient) Flush(ctx context.Context) {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	for start := 0; start < len(batch); start += maxLogBatch {
		end := min(start+maxLogBatch, len(batch))
		if _, err := c.api.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  sdkaws.String(c.group),
			LogStreamName: sdkaws.String(c.stream),
			LogEvents:     batch[start:end],
		}); err != nil {
			fmt.Fprintf(os.Stderr, "CloudWatch write error, %d events dropped: %v\n", end-start, err)
		}
	}
}

// Run flushes on a ticker until ctx is done, then flushes once more.
func (c *CloudWatchLogsClient) Run(ctx context.Context) {
	ticker := time.NewTicker(logFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), logFlushCallTimeout)
			c.Flush(final)
			cancel()
			return
		case <-ticker.C:
			c.Flush(ctx)
		}
	}
}
