package realtime_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
)

func TestHub_SubscribeAndNotify(t *testing.T) {
	hub := realtime.NewHub()

	got := make(chan realtime.Event, 4)
	unsubscribe := hub.Subscribe(realtime.TopicProducts, func(ev realtime.Event) { got <- ev }, nil)
	defer unsubscribe()

	require.NoError(t, hub.Notify(context.Background(), realtime.TopicProducts))

	select {
	case ev := <-got:
		assert.Equal(t, realtime.TopicProducts, ev.Topic)
		assert.NoError(t, ev.Err)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestHub_TopicsAreIsolated(t *testing.T) {
	hub := realtime.NewHub()
	userA := uuid.Must(uuid.NewV4())
	userB := uuid.Must(uuid.NewV4())

	var calls atomic.Int32
	unsubscribe := hub.Subscribe(realtime.CartTopic(userA), func(realtime.Event) { calls.Add(1) }, nil)
	defer unsubscribe()

	hub.Publish(realtime.CartTopic(userB))
	hub.Publish(realtime.UserOrdersTopic(userA))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := realtime.NewHub()

	var calls atomic.Int32
	unsubscribe := hub.Subscribe(realtime.TopicSettings, func(realtime.Event) { calls.Add(1) }, nil)
	assert.Equal(t, 1, hub.Subscribers(realtime.TopicSettings))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, hub.Subscribers(realtime.TopicSettings))

	hub.Publish(realtime.TopicSettings)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestHub_FailReachesErrorCallback(t *testing.T) {
	hub := realtime.NewHub()
	feedErr := errors.New("connection reset")

	errs := make(chan error, 1)
	unsubscribe := hub.Subscribe(realtime.TopicOrders, func(realtime.Event) {}, func(err error) { errs <- err })
	defer unsubscribe()

	hub.Fail(feedErr)

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, feedErr)
	case <-time.After(time.Second):
		t.Fatal("error callback not invoked")
	}
}

func TestHub_SignalsCoalesceWhileBusy(t *testing.T) {
	hub := realtime.NewHub()

	release := make(chan struct{})
	var calls atomic.Int32
	unsubscribe := hub.Subscribe(realtime.TopicProducts, func(realtime.Event) {
		calls.Add(1)
		<-release
	}, nil)
	defer unsubscribe()

	hub.Publish(realtime.TopicProducts)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < 10; i++ {
		hub.Publish(realtime.TopicProducts)
	}
	close(release)

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHub_ResyncAfterFail(t *testing.T) {
	hub := realtime.NewHub()
	userID := uuid.Must(uuid.NewV4())

	updates := make(chan realtime.Event, 4)
	errs := make(chan error, 4)
	for _, topic := range []string{realtime.TopicProducts, realtime.CartTopic(userID)} {
		unsubscribe := hub.Subscribe(topic, func(ev realtime.Event) { updates <- ev }, func(err error) { errs <- err })
		defer unsubscribe()
	}
	assert.ElementsMatch(t, []string{realtime.TopicProducts, realtime.CartTopic(userID)}, hub.Topics())

	hub.Fail(errors.New("connection reset"))
	for i := 0; i < 2; i++ {
		select {
		case <-errs:
		case <-time.After(time.Second):
			t.Fatal("error callback not invoked")
		}
	}

	hub.Resync()

	var topics []string
	for i := 0; i < 2; i++ {
		select {
		case ev := <-updates:
			assert.NoError(t, ev.Err)
			topics = append(topics, ev.Topic)
		case <-time.After(time.Second):
			t.Fatal("resync did not deliver an update")
		}
	}
	assert.ElementsMatch(t, []string{realtime.TopicProducts, realtime.CartTopic(userID)}, topics)
}

func TestHub_ResyncWithoutSubscribers(t *testing.T) {
	hub := realtime.NewHub()

	assert.Empty(t, hub.Topics())
	assert.NotPanics(t, hub.Resync)
}
