package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"fixflow.io/fixflow/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

func TestEventDispatcher_Dispatch(t *testing.T) {
	d := NewEventDispatcher()

	var got []*Event
	d.Register(EventRequestCreated, func(ctx context.Context, event *Event) error {
		got = append(got, event)
		return nil
	})

	ev := &Event{
		EventID:       "ev-1",
		EventType:     EventRequestCreated,
		AggregateType: AggregateRequest,
		AggregateID:   "req-1",
	}
	require.NoError(t, d.Dispatch(context.Background(), ev))
	require.Len(t, got, 1)
	require.Equal(t, "req-1", got[0].AggregateID)
}

func TestEventDispatcher_HandlerFailureDoesNotStopOthers(t *testing.T) {
	d := NewEventDispatcher()

	boom := errors.New("boom")
	var secondRan bool
	d.Register(EventRequestStatusChanged, func(ctx context.Context, event *Event) error {
		return boom
	})
	d.Register(EventRequestStatusChanged, func(ctx context.Context, event *Event) error {
		secondRan = true
		return nil
	})

	err := d.Dispatch(context.Background(), &Event{EventType: EventRequestStatusChanged})
	require.ErrorIs(t, err, boom)
	require.True(t, secondRan)
}

func TestEventDispatcher_NoHandlers(t *testing.T) {
	d := NewEventDispatcher()
	require.NoError(t, d.Dispatch(context.Background(), &Event{EventType: EventRequestAssigned}))
}

func TestStatusChangedPayload_ToJSON(t *testing.T) {
	p := StatusChangedPayload{
		RequestID:  "req-1",
		Identifier: "25-ABRAJ1-001",
		FromStatus: string(StatusInProgress),
		ToStatus:   string(StatusCompleted),
		Reason:     "work done",
		ChangedBy:  "tech-1",
	}
	raw, err := p.ToJSON()
	require.NoError(t, err)

	var back StatusChangedPayload
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, p, back)
}
