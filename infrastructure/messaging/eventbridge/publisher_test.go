package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"senkou-backend/domain/events"
)

type fakeClient struct {
	input  *eventbridge.PutEventsInput
	output *eventbridge.PutEventsOutput
	err    error
}

func (f *fakeClient) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func TestPublisher_Publish(t *testing.T) {
	client := &fakeClient{output: &eventbridge.PutEventsOutput{}}
	pub := NewPublisher(client, "records", "senkou.records", zap.NewNop())

	at := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Publish(context.Background(), events.NewRecordUpdated("r1", "u1", []string{"status"}, at)))

	require.NotNil(t, client.input)
	require.Len(t, client.input.Entries, 1)
	entry := client.input.Entries[0]
	assert.Equal(t, "records", aws.ToString(entry.EventBusName))
	assert.Equal(t, "senkou.records", aws.ToString(entry.Source))
	assert.Equal(t, events.TypeRecordUpdated, aws.ToString(entry.DetailType))
	assert.Equal(t, at, aws.ToTime(entry.Time))

	var detail map[string]any
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "r1", detail["record_id"])
	assert.Equal(t, []any{"status"}, detail["fields"])
}

func TestPublisher_Failures(t *testing.T) {
	t.Run("call error", func(t *testing.T) {
		pub := NewPublisher(&fakeClient{err: errors.New("denied")}, "records", "src", zap.NewNop())
		assert.Error(t, pub.Publish(context.Background(), events.NewRecordDeleted("r1", time.Now())))
	})

	t.Run("failed entries", func(t *testing.T) {
		client := &fakeClient{output: &eventbridge.PutEventsOutput{
			FailedEntryCount: 1,
			Entries:          []types.PutEventsResultEntry{{ErrorCode: aws.String("InternalFailure")}},
		}}
		pub := NewPublisher(client, "records", "src", zap.NewNop())
		assert.EqualError(t, pub.Publish(context.Background(), events.NewRecordDeleted("r1", time.Now())), "1 events failed to publish")
	})
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), events.NewRecordDeleted("r1", time.Now())))
}
