package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishToTopic(t *testing.T) {
	hub := NewHub()

	all, cleanupAll := hub.Subscribe("payrolls")
	defer cleanupAll()
	emp, cleanupEmp := hub.Subscribe("employee:emp-1")
	defer cleanupEmp()

	n := hub.PublishToMany([]string{"payrolls", "employee:emp-1", "employee:emp-2"}, Event{Event: "PayrollCreated", Data: "x"})
	assert.Equal(t, 2, n)

	got := <-all
	assert.Equal(t, "payrolls", got.Topic)
	assert.Equal(t, "PayrollCreated", got.Event)

	got = <-emp
	assert.Equal(t, "employee:emp-1", got.Topic)
	assert.Equal(t, 2, hub.TotalSubscribers())
}

func TestHub_CleanupIsIdempotent(t *testing.T) {
	hub := NewHub()

	ch, cleanup := hub.Subscribe("payrolls")
	require.Equal(t, 1, hub.SubscriberCount("payrolls"))

	cleanup()
	cleanup()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, hub.SubscriberCount("payrolls"))
	assert.Zero(t, hub.Publish("payrolls", Event{Event: "PayrollPaid"}))
}

func TestHub_DropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub()
	_, cleanup := hub.Subscribe("payrolls")
	defer cleanup()

	for i := 0; i < hub.bufferSize; i++ {
		require.Equal(t, 1, hub.Publish("payrolls", Event{Event: "PayrollCalculated"}))
	}
	assert.Zero(t, hub.Publish("payrolls", Event{Event: "PayrollCalculated"}))
}
