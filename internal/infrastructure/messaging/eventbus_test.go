package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/admissions/internal/domain/shared"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func offered(id string) shared.Event {
	return shared.StatusChangedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventAdmissionOffered, id, "dean", time.Now()),
		Status:    "OFFERED",
	}
}

func TestPublish_Order(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{Logger: quietLogger(), EnableMetrics: true})

	var got []string
	require.NoError(t, bus.Subscribe(shared.EventAdmissionOffered, func(_ context.Context, e shared.Event) error {
		got = append(got, "typed:"+e.AggregateID())
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventStudentRejected, func(context.Context, shared.Event) error {
		got = append(got, "rejected")
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(_ context.Context, e shared.Event) error {
		got = append(got, "all:"+e.AggregateID())
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), offered("s1")))

	assert.Equal(t, []string{"typed:s1", "all:s1"}, got)
	assert.Equal(t, int64(1), bus.Metrics().Published(shared.EventAdmissionOffered))
}

func TestPublish_AllHandlersRunOnError(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{Logger: quietLogger(), EnableMetrics: true})

	boom := errors.New("boom")
	ran := false
	require.NoError(t, bus.Subscribe(shared.EventAdmissionOffered, func(context.Context, shared.Event) error { return boom }))
	require.NoError(t, bus.SubscribeAll(func(context.Context, shared.Event) error {
		ran = true
		return nil
	}))

	err := bus.Publish(context.Background(), offered("s1"))
	assert.ErrorIs(t, err, boom)
	assert.True(t, ran)
	assert.Equal(t, int64(1), bus.Metrics().Failures())
}

func TestClosedBus(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{Logger: quietLogger()})
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), offered("s1")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(context.Context, shared.Event) error { return nil }), ErrEventBusClosed)
	assert.Nil(t, bus.Metrics())
}

func TestNilArguments(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{Logger: quietLogger()})

	assert.Error(t, bus.Subscribe(shared.EventAdmissionOffered, nil))
	assert.Error(t, bus.SubscribeAll(nil))
	assert.Error(t, bus.Publish(context.Background(), nil))
}
