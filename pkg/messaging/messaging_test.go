package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAck struct {
	acked, nacked, rejected int
	requeue                 bool
}

func (f *fakeAck) Ack(tag uint64, multiple bool) error {
	f.acked++
	return nil
}

func (f *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked++
	f.requeue = requeue
	return nil
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error {
	f.rejected++
	f.requeue = requeue
	return nil
}

func delivery(t *testing.T, ack amqp.Acknowledger, eventType string, headers amqp.Table) amqp.Delivery {
	t.Helper()
	event, err := NewEvent(eventType, "test", "corr-1", EmailNotification{Recipient: "alice", Message: "hi"})
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body, Headers: headers}
}

func TestNewEvent_RoundTripData(t *testing.T) {
	event, err := NewEvent(EventTaskCreated, "hr-service", "corr", TaskCreatedEvent{TaskID: "t1", Title: "Prepare report"})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "corr", event.CorrelationID)

	var data TaskCreatedEvent
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, "Prepare report", data.Title)
}

func TestConsumer_HandleMessage(t *testing.T) {
	t.Run("acks on success and passes correlation id", func(t *testing.T) {
		c := newConsumer(nil, "q", 3, logger.Nop())
		var corr string
		c.RegisterHandler(EventNotificationEmail, func(ctx context.Context, e *Event) error {
			corr = getCorrelationID(ctx)
			return nil
		})

		ack := &fakeAck{}
		c.handleMessage(context.Background(), delivery(t, ack, EventNotificationEmail, nil))

		assert.Equal(t, 1, ack.acked)
		assert.Equal(t, "corr-1", corr)
	})

	t.Run("acks unknown event types", func(t *testing.T) {
		c := newConsumer(nil, "q", 3, logger.Nop())
		ack := &fakeAck{}
		c.handleMessage(context.Background(), delivery(t, ack, "other.event", nil))
		assert.Equal(t, 1, ack.acked)
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		c := newConsumer(nil, "q", 3, logger.Nop())
		ack := &fakeAck{}
		c.handleMessage(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})
		assert.Equal(t, 1, ack.rejected)
		assert.False(t, ack.requeue)
	})

	t.Run("republishes failures with incremented count", func(t *testing.T) {
		c := newConsumer(nil, "q", 3, logger.Nop())
		c.RegisterHandler(EventNotificationEmail, func(ctx context.Context, e *Event) error {
			return errors.New("smtp down")
		})
		var attempt int
		c.retry = func(ctx context.Context, msg amqp.Delivery, n int) error {
			attempt = n
			return nil
		}

		ack := &fakeAck{}
		c.handleMessage(context.Background(), delivery(t, ack, EventNotificationEmail, amqp.Table{retryHeader: int64(1)}))

		assert.Equal(t, 2, attempt)
		assert.Equal(t, 1, ack.acked)
	})

	t.Run("dead-letters after max retries", func(t *testing.T) {
		c := newConsumer(nil, "q", 3, logger.Nop())
		c.RegisterHandler(EventNotificationEmail, func(ctx context.Context, e *Event) error {
			return errors.New("smtp down")
		})

		ack := &fakeAck{}
		c.handleMessage(context.Background(), delivery(t, ack, EventNotificationEmail, amqp.Table{retryHeader: int64(3)}))

		assert.Equal(t, 1, ack.rejected)
		assert.False(t, ack.requeue)
	})
}

func TestNopPublisher(t *testing.T) {
	var p EventPublisher = NewNopPublisher(logger.Nop())
	assert.NoError(t, p.Publish(context.Background(), EventTaskCreated, nil))
}
