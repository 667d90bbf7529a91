package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCloudWatchClient records PutMetricData inputs.
type fakeCloudWatchClient struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (c *fakeCloudWatchClient) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.inputs = append(c.inputs, params)
	if c.err != nil {
		return nil, c.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordRequest_EmitsCountAndLatency(t *testing.T) {
	client := &fakeCloudWatchClient{}
	metrics := NewCloudWatchMetrics(client, "ZeusBolt", discardLogger())

	metrics.RecordRequest("POST", "/v1/projects", "201", 42*time.Millisecond)

	require.Len(t, client.inputs, 1)
	input := client.inputs[0]
	assert.Equal(t, "ZeusBolt", *input.Namespace)
	require.Len(t, input.MetricData, 2)

	count := input.MetricData[0]
	assert.Equal(t, "APIRequestCount", *count.MetricName)
	assert.Equal(t, float64(1), *count.Value)
	assert.Equal(t, cwtypes.StandardUnitCount, count.Unit)

	latency := input.MetricData[1]
	assert.Equal(t, "APILatency", *latency.MetricName)
	assert.Equal(t, float64(42), *latency.Value)
	assert.Equal(t, cwtypes.StandardUnitMilliseconds, latency.Unit)
}

func TestRecordRequest_Dimensions(t *testing.T) {
	client := &fakeCloudWatchClient{}
	metrics := NewCloudWatchMetrics(client, "ZeusBolt", discardLogger())

	metrics.RecordRequest("GET", "/v1/billing/subscription", "200", time.Millisecond)

	require.Len(t, client.inputs, 1)
	for _, datum := range client.inputs[0].MetricData {
		dims := make(map[string]string)
		for _, d := range datum.Dimensions {
			dims[*d.Name] = *d.Value
		}
		assert.Equal(t, "GET", dims["Method"])
		assert.Equal(t, "/v1/billing/subscription", dims["Endpoint"])
		assert.Equal(t, "200", dims["Status"])
	}
}

func TestRecordRequest_PublishFailureDoesNotPanic(t *testing.T) {
	client := &fakeCloudWatchClient{err: fmt.Errorf("throttled")}
	metrics := NewCloudWatchMetrics(client, "ZeusBolt", discardLogger())

	// A CloudWatch failure is logged and swallowed; the request path never
	// sees it.
	assert.NotPanics(t, func() {
		metrics.RecordRequest("GET", "/health", "200", time.Millisecond)
	})
}
