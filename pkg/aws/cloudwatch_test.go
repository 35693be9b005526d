package aws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogsAPI struct {
	mu        sync.Mutex
	groupErr  error
	retention int
	streams   []string
	batches   [][]types.InputLogEvent
	putErr    error
}

func (f *fakeLogsAPI) CreateLogGroup(_ context.Context, _ *cloudwatchlogs.CreateLogGroupInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	return &cloudwatchlogs.CreateLogGroupOutput{}, f.groupErr
}

func (f *fakeLogsAPI) CreateLogStream(_ context.Context, in *cloudwatchlogs.CreateLogStreamInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	f.streams = append(f.streams, *in.LogStreamName)
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func (f *fakeLogsAPI) PutRetentionPolicy(_ context.Context, in *cloudwatchlogs.PutRetentionPolicyInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error) {
	f.retention = int(*in.RetentionInDays)
	return &cloudwatchlogs.PutRetentionPolicyOutput{}, nil
}

func (f *fakeLogsAPI) PutLogEvents(_ context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.batches = append(f.batches, in.LogEvents)
	return &cloudwatchlogs.PutLogEventsOutput{}, nil
}

func (f *fakeLogsAPI) batchSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sizes []int
	for _, b := range f.batches {
		sizes = append(sizes, len(b))
	}
	return sizes
}

func TestCloudWatchLogs_CreatesGroupAndStream(t *testing.T) {
	api := &fakeLogsAPI{}

	c, err := newCloudWatchLogsClient(context.Background(), api, "", "story-service")
	require.NoError(t, err)

	assert.Equal(t, defaultLogGroup, c.group)
	assert.Equal(t, logRetentionDays, api.retention)
	require.Len(t, api.streams, 1)
	assert.Contains(t, api.streams[0], "story-service/")
}

func TestCloudWatchLogs_ExistingGroupSkipsRetention(t *testing.T) {
	api := &fakeLogsAPI{groupErr: &types.ResourceAlreadyExistsException{}}

	_, err := newCloudWatchLogsClient(context.Background(), api, "/valentine/test", "story-service")
	require.NoError(t, err)
	assert.Zero(t, api.retention)
}

func TestCloudWatchLogs_GroupFailure(t *testing.T) {
	api := &fakeLogsAPI{groupErr: errors.New("access denied")}

	_, err := newCloudWatchLogsClient(context.Background(), api, "/valentine/test", "story-service")
	assert.ErrorContains(t, err, "access denied")
}

func TestCloudWatchLogs_BuffersUntilFlush(t *testing.T) {
	api := &fakeLogsAPI{}
	c, err := newCloudWatchLogsClient(context.Background(), api, "", "story-service")
	require.NoError(t, err)

	n, err := c.Write([]byte(`{"msg":"one"}`))
	require.NoError(t, err)
	assert.Equal(t, len(`{"msg":"one"}`), n)
	c.Write([]byte(`{"msg":"two"}`))
	assert.Empty(t, api.batchSizes())

	c.Flush(context.Background())
	assert.Equal(t, []int{2}, api.batchSizes())

	c.Flush(context.Background())
	assert.Equal(t, []int{2}, api.batchSizes())
}

func TestCloudWatchLogs_FullBatchFlushesOnWrite(t *testing.T) {
	api := &fakeLogsAPI{}
	c, err := newCloudWatchLogsClient(context.Background(), api, "", "story-service")
	require.NoError(t, err)

	for i := 0; i < maxLogBatch; i++ {
		c.Write([]byte(fmt.Sprintf("line %d", i)))
	}
	assert.Equal(t, []int{maxLogBatch}, api.batchSizes())
}

func TestCloudWatchLogs_WriteNeverFails(t *testing.T) {
	api := &fakeLogsAPI{}
	c, err := newCloudWatchLogsClient(context.Background(), api, "", "story-service")
	require.NoError(t, err)
	api.putErr = errors.New("throttled")

	_, err = c.Write([]byte("line"))
	assert.NoError(t, err)
	c.Flush(context.Background())
	assert.Empty(t, api.batchSizes())
}

func TestCloudWatchLogs_RunFlushesOnCancel(t *testing.T) {
	api := &fakeLogsAPI{}
	c, err := newCloudWatchLogsClient(context.Background(), api, "", "story-service")
	require.NoError(t, err)
	c.Write([]byte("last words"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	assert.Equal(t, []int{1}, api.batchSizes())
}
