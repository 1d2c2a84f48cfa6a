package eventbus

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/etc-portal/pkg/logging"
)

type testEvent struct {
	Name string
}

func TestPublishSubscribe(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))

	var received *testEvent
	publisher.Subscribe(func(e *testEvent) {
		received = e
	})
	require.Equal(t, 1, publisher.SubscribersCount())

	publisher.Publish(&testEvent{Name: "status-changed"})
	require.NotNil(t, received)
	assert.Equal(t, "status-changed", received.Name)
}

func TestPublishNoMatchingSubscriber(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))

	called := false
	publisher.Subscribe(func(e *testEvent) {
		called = true
	})

	publisher.Publish("not a testEvent")
	assert.False(t, called)
}

func TestPanickingHandlerIsContained(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.PanicLevel))

	publisher.Subscribe(func(e *testEvent) {
		panic("boom")
	})

	var second *testEvent
	publisher.Subscribe(func(e *testEvent) {
		second = e
	})

	require.NotPanics(t, func() {
		publisher.Publish(&testEvent{Name: "ok"})
	})
	require.NotNil(t, second)
}

func TestUnsubscribe(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))

	handler := func(e *testEvent) {}
	publisher.Subscribe(handler)
	publisher.Unsubscribe(handler)
	assert.Equal(t, 0, publisher.SubscribersCount())
}

func TestUnsubscribeUnknownHandlerKeepsSubscribers(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))

	publisher.Subscribe(func(e *testEvent) {})
	publisher.Unsubscribe(func(e *testEvent) {})
	assert.Equal(t, 1, publisher.SubscribersCount(),
		"a distinct func value with the same signature is not the subscriber")
}

func TestMatchSignature(t *testing.T) {
	assert.True(t, MatchSignature(func(e *testEvent) {}, []interface{}{&testEvent{}}))
	assert.False(t, MatchSignature(func(e *testEvent) {}, []interface{}{"string"}))
	assert.False(t, MatchSignature("not a func", []interface{}{&testEvent{}}))
	assert.False(t, MatchSignature(func(a, b *testEvent) {}, []interface{}{&testEvent{}}))
}
