/*
 * Copyright 2025 The SpitBreak Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mqtt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/engine"
	"github.com/spitbreak/qpid/test/assert"
	"github.com/spitbreak/qpid/utils/cache"
	"github.com/spitbreak/qpid/utils/mqtt"
)

// fakePahoMessage stands in for a message arriving from the mqtt server.
type fakePahoMessage struct {
	topic    string
	payload  []byte
	retained bool
}

func (m *fakePahoMessage) Duplicate() bool   { return false }
func (m *fakePahoMessage) Qos() byte         { return 0 }
func (m *fakePahoMessage) Retained() bool    { return m.retained }
func (m *fakePahoMessage) Topic() string     { return m.topic }
func (m *fakePahoMessage) MessageID() uint16 { return 0 }
func (m *fakePahoMessage) Payload() []byte   { return m.payload }
func (m *fakePahoMessage) Ack()              {}

func receive(t *testing.T, consumer *engine.ChannelConsumer) types.Message {
	t.Helper()
	select {
	case msg := <-consumer.C():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the delivery")
		return types.Message{}
	}
}

func waitForMetrics(t *testing.T, broker *engine.Broker, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for the metrics, got %+v", broker.Metrics())
}

func TestMqttInbound(t *testing.T) {
	t.Run("routeValidation", func(t *testing.T) {
		x := New(mqtt.Config{}, engine.NewBroker(types.NewConfig()), nil)
		assert.NotNil(t, x.AddInbound(InboundRoute{}))
		assert.Nil(t, x.AddInbound(InboundRoute{Topic: "sensors/#"}))
		assert.Nil(t, x.RemoveInbound("sensors/#"))
		err := x.RemoveInbound("sensors/#")
		assert.NotNil(t, err)
		assert.True(t, strings.Contains(err.Error(), "not found"))
	})

	t.Run("bridgesToBroker", func(t *testing.T) {
		broker := engine.NewBroker(types.NewConfig())
		consumer := engine.NewChannelConsumer("c1", 4)
		_, err := broker.Subscribe(types.SubscriptionConfig{Id: "s1", Destination: "sensors/+/state"}, consumer)
		assert.Nil(t, err)

		x := New(mqtt.Config{}, broker, nil)
		handle := x.handler(InboundRoute{Topic: "sensors/#", Type: "SENSOR_STATE"})
		handle(nil, &fakePahoMessage{topic: "sensors/a/state", payload: []byte(`{"temp": 21}`)})

		msg := receive(t, consumer)
		assert.Equal(t, "sensors/a/state", msg.Destination)
		assert.Equal(t, "SENSOR_STATE", msg.Type)
		assert.Equal(t, types.JSON, msg.DataType)
		assert.Equal(t, `{"temp": 21}`, msg.Data)
		assert.Equal(t, "sensors/a/state", msg.Metadata.GetValue("topic"))
	})

	t.Run("destinationOverride", func(t *testing.T) {
		broker := engine.NewBroker(types.NewConfig())
		consumer := engine.NewChannelConsumer("c1", 4)
		_, err := broker.Subscribe(types.SubscriptionConfig{Id: "s1", Destination: "ingest/#"}, consumer)
		assert.Nil(t, err)

		x := New(mqtt.Config{}, broker, nil)
		handle := x.handler(InboundRoute{Topic: "sensors/#", Destination: "ingest/sensors"})
		handle(nil, &fakePahoMessage{topic: "sensors/a/state", payload: []byte("hello")})

		msg := receive(t, consumer)
		assert.Equal(t, "ingest/sensors", msg.Destination)
		assert.Equal(t, types.TEXT, msg.DataType)
		assert.Equal(t, "sensors/a/state", msg.Metadata.GetValue("topic"))
	})

	t.Run("retainedWithoutCacheStillPublishes", func(t *testing.T) {
		broker := engine.NewBroker(types.NewConfig())
		consumer := engine.NewChannelConsumer("c1", 4)
		_, err := broker.Subscribe(types.SubscriptionConfig{Id: "s1", Destination: "sensors/#"}, consumer)
		assert.Nil(t, err)

		x := New(mqtt.Config{}, broker, nil)
		handle := x.handler(InboundRoute{Topic: "sensors/#"})
		handle(nil, &fakePahoMessage{topic: "sensors/a/state", payload: []byte("on"), retained: true})

		msg := receive(t, consumer)
		assert.Equal(t, "on", msg.Data)
	})

	t.Run("retainedStoredWithCache", func(t *testing.T) {
		memoryCache := cache.NewMemoryCache(time.Minute)
		broker := engine.NewBroker(types.NewConfig(types.WithCache(memoryCache)))

		x := New(mqtt.Config{}, broker, nil)
		handle := x.handler(InboundRoute{Topic: "sensors/#"})
		handle(nil, &fakePahoMessage{topic: "sensors/a/state", payload: []byte("on"), retained: true})

		waitForMetrics(t, broker, func() bool { return broker.Metrics().Published == 1 })

		// a late subscriber replays the retained message
		consumer := engine.NewChannelConsumer("c1", 4)
		_, err := broker.Subscribe(types.SubscriptionConfig{Id: "s1", Destination: "sensors/#"}, consumer)
		assert.Nil(t, err)
		msg := receive(t, consumer)
		assert.Equal(t, "on", msg.Data)
	})
}

func TestMqttOutbound(t *testing.T) {
	t.Run("emptyTopic", func(t *testing.T) {
		x := New(mqtt.Config{}, engine.NewBroker(types.NewConfig()), nil)
		_, err := x.AddOutbound(types.SubscriptionConfig{Destination: "alerts/#"}, "")
		assert.NotNil(t, err)
	})

	t.Run("badExpression", func(t *testing.T) {
		x := New(mqtt.Config{}, engine.NewBroker(types.NewConfig()), nil)
		_, err := x.AddOutbound(types.SubscriptionConfig{
			Destination: "alerts/#",
			Expression:  "level = ",
		}, "bridge/alerts")
		assert.NotNil(t, err)
	})

	t.Run("notStartedFailsDeliveries", func(t *testing.T) {
		broker := engine.NewBroker(types.NewConfig())
		x := New(mqtt.Config{}, broker, nil)
		sub, err := x.AddOutbound(types.SubscriptionConfig{Destination: "alerts/#"}, "bridge/${metadata.level}")
		assert.Nil(t, err)
		assert.Equal(t, "mqtt:bridge/${metadata.level}", sub.Id())

		msg := types.NewMsg(0, "ALERT", types.JSON,
			types.BuildMetadata(map[string]string{"level": "high"}), `{"code": 7}`)
		msg.Destination = "alerts/fire"
		count, err := broker.Publish(msg)
		assert.Nil(t, err)
		assert.Equal(t, 1, count)

		waitForMetrics(t, broker, func() bool { return broker.Metrics().Failed == 1 })
	})

	t.Run("removeOutbound", func(t *testing.T) {
		broker := engine.NewBroker(types.NewConfig())
		x := New(mqtt.Config{}, broker, nil)
		sub, err := x.AddOutbound(types.SubscriptionConfig{Id: "out1", Destination: "alerts/#"}, "bridge/alerts")
		assert.Nil(t, err)
		assert.Nil(t, x.RemoveOutbound(sub.Id()))
		assert.Equal(t, 0, len(broker.Subscriptions()))
		assert.NotNil(t, x.RemoveOutbound(sub.Id()))
	})
}

func TestMqttLifecycle(t *testing.T) {
	broker := engine.NewBroker(types.NewConfig())
	x := New(mqtt.Config{}, broker, nil)
	assert.Equal(t, "mqtt", x.Type())

	_, err := x.AddOutbound(types.SubscriptionConfig{Id: "out1", Destination: "alerts/#"}, "bridge/alerts")
	assert.Nil(t, err)
	assert.Equal(t, 1, len(broker.Subscriptions()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Nil(t, x.Shutdown(ctx))
	assert.Equal(t, 0, len(broker.Subscriptions()))
	assert.Nil(t, x.Shutdown(ctx))
}
