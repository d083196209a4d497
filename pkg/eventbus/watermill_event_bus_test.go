package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/spinscribe/spinscribe/pkg/channels/gochannel"
	"github.com/spinscribe/spinscribe/pkg/eventbus"
	"github.com/spinscribe/spinscribe/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		if err := bus.Close(); err != nil {
			t.Logf("Failed to close event bus: %v", err)
		}
	})

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.WorkflowStarted, 1)

	err := bus.Handle(events.WorkflowStartedEvent, func(_ context.Context, event any) error {
		started, ok := event.(*events.WorkflowStarted)
		require.True(t, ok)
		received <- started

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	published := events.WorkflowStarted{
		BaseEvent:    events.NewBaseEvent(events.WorkflowStartedEvent, "wf-1"),
		WorkflowType: "blog_post",
		TotalTasks:   4,
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", published))

	select {
	case got := <-received:
		assert.Equal(t, "wf-1", got.WorkflowID)
		assert.Equal(t, "blog_post", got.WorkflowType)
		assert.Equal(t, 4, got.TotalTasks)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledTypesAreAcked(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.TaskFinished, 1)

	err := bus.Handle(events.TaskFinishedEvent, func(_ context.Context, event any) error {
		finished, ok := event.(*events.TaskFinished)
		require.True(t, ok)
		received <- finished

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	// No handler for workflow.failed; the message must not block the stream.
	require.NoError(t, bus.Publish(ctx, "wf-1", events.WorkflowFailed{
		BaseEvent: events.NewBaseEvent(events.WorkflowFailedEvent, "wf-1"),
		Error:     "boom",
	}))

	require.NoError(t, bus.Publish(ctx, "wf-1", events.TaskFinished{
		BaseEvent: events.NewBaseEvent(events.TaskFinishedEvent, "wf-1"),
		TaskID:    "style_analysis",
	}))

	select {
	case got := <-received:
		assert.Equal(t, "style_analysis", got.TaskID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
