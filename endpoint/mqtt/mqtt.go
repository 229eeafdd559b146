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

// Package mqtt bridges the broker to an mqtt server in both directions.
// Inbound routes subscribe mqtt topics and publish the arriving messages to
// the broker. Outbound routes subscribe the broker and forward the matched
// messages to an mqtt topic, which may contain ${} templates over the
// message fields.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/valyala/fastjson"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/engine"
	"github.com/spitbreak/qpid/filter"
	"github.com/spitbreak/qpid/utils/el"
	"github.com/spitbreak/qpid/utils/mqtt"
	"github.com/spitbreak/qpid/utils/runtime"
	"github.com/spitbreak/qpid/utils/str"
)

// Type is the endpoint type.
const Type = "mqtt"

// InboundRoute bridges one mqtt topic into the broker.
type InboundRoute struct {
	// Topic is the mqtt subscription filter, e.g. sensors/#.
	Topic string
	// Destination is the broker destination to publish to. Empty publishes
	// to the incoming mqtt topic.
	Destination string
	// Type stamps the bridged messages' type.
	Type string
}

// Mqtt is the mqtt bridge endpoint.
type Mqtt struct {
	Config   mqtt.Config
	broker   *engine.Broker
	logger   types.Logger
	locker   sync.Mutex
	client   *mqtt.Client
	inbound  map[string]InboundRoute
	outbound map[string]bool
}

// New creates an mqtt endpoint bound to broker. Start connects it.
func New(config mqtt.Config, broker *engine.Broker, logger types.Logger) *Mqtt {
	return &Mqtt{
		Config:   config,
		broker:   broker,
		logger:   types.NewLogger(logger),
		inbound:  make(map[string]InboundRoute),
		outbound: make(map[string]bool),
	}
}

func (x *Mqtt) Type() string {
	return Type
}

// AddInbound registers an mqtt to broker route. Routes added before Start
// are subscribed on connect.
func (x *Mqtt) AddInbound(route InboundRoute) error {
	if route.Topic == "" {
		return errors.New("topic can not be empty")
	}
	x.locker.Lock()
	defer x.locker.Unlock()
	x.inbound[route.Topic] = route
	if x.client != nil {
		x.client.RegisterHandler(mqtt.Handler{
			Topic:  route.Topic,
			Qos:    x.Config.QOS,
			Handle: x.handler(route),
		})
	}
	return nil
}

// RemoveInbound drops an mqtt to broker route.
func (x *Mqtt) RemoveInbound(topic string) error {
	x.locker.Lock()
	defer x.locker.Unlock()
	if _, ok := x.inbound[topic]; !ok {
		return fmt.Errorf("route: %s not found", topic)
	}
	delete(x.inbound, topic)
	if x.client != nil {
		return x.client.UnregisterHandler(topic)
	}
	return nil
}

// AddOutbound subscribes the broker and forwards the matched messages to
// topicPattern, an el template over the message fields, e.g.
// devices/${metadata.deviceId}/commands.
func (x *Mqtt) AddOutbound(config types.SubscriptionConfig, topicPattern string) (*engine.Subscription, error) {
	if topicPattern == "" {
		return nil, errors.New("topic can not be empty")
	}
	topicTemplate, err := el.NewTemplate(topicPattern)
	if err != nil {
		return nil, err
	}
	if config.Id == "" {
		config.Id = Type + ":" + topicPattern
	}
	consumer := engine.NewConsumerFunc(config.Id, func(msg types.Message) error {
		client := x.currentClient()
		if client == nil {
			return errors.New("mqtt endpoint not started")
		}
		topicValue, err := topicTemplate.Execute(filter.ScriptEnv(msg))
		if err != nil {
			return err
		}
		return client.Publish(str.ToString(topicValue), x.Config.QOS, []byte(msg.Data))
	})
	sub, err := x.broker.Subscribe(config, consumer)
	if err != nil {
		return nil, err
	}
	x.locker.Lock()
	x.outbound[sub.Id()] = true
	x.locker.Unlock()
	return sub, nil
}

// RemoveOutbound drops a broker to mqtt route.
func (x *Mqtt) RemoveOutbound(id string) error {
	x.locker.Lock()
	delete(x.outbound, id)
	x.locker.Unlock()
	return x.broker.Unsubscribe(id)
}

// Start connects to the mqtt server and subscribes the inbound routes.
func (x *Mqtt) Start() error {
	x.locker.Lock()
	defer x.locker.Unlock()
	if x.client != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.TODO(), 4*time.Second)
	defer cancel()
	client, err := mqtt.NewClient(ctx, x.Config)
	if err != nil {
		return err
	}
	x.client = client
	for _, route := range x.inbound {
		x.client.RegisterHandler(mqtt.Handler{
			Topic:  route.Topic,
			Qos:    x.Config.QOS,
			Handle: x.handler(route),
		})
	}
	return nil
}

// Shutdown removes the outbound subscriptions and closes the connection.
func (x *Mqtt) Shutdown(ctx context.Context) error {
	x.locker.Lock()
	defer x.locker.Unlock()
	for id := range x.outbound {
		_ = x.broker.Unsubscribe(id)
	}
	x.outbound = make(map[string]bool)
	if x.client != nil {
		err := x.client.Close()
		x.client = nil
		return err
	}
	return nil
}

func (x *Mqtt) currentClient() *mqtt.Client {
	x.locker.Lock()
	defer x.locker.Unlock()
	return x.client
}

func (x *Mqtt) handler(route InboundRoute) func(c paho.Client, data paho.Message) {
	return func(c paho.Client, data paho.Message) {
		defer func() {
			if e := recover(); e != nil {
				x.logger.Printf("mqtt endpoint handler err :%v\n%v", e, runtime.Stack())
			}
		}()
		if _, err := x.publish(route, data); err != nil {
			x.logger.Printf("mqtt endpoint publish: %s", err)
		}
	}
}

func (x *Mqtt) publish(route InboundRoute, data paho.Message) (int, error) {
	destination := route.Destination
	if destination == "" {
		destination = data.Topic()
	}
	payload := string(data.Payload())
	dataType := types.TEXT
	if fastjson.Validate(payload) == nil {
		dataType = types.JSON
	}
	metadata := types.NewMetadata()
	metadata.PutValue("topic", data.Topic())

	msg := types.NewMsg(0, route.Type, dataType, metadata, payload)
	msg.Destination = destination
	if data.Retained() {
		dispatched, err := x.broker.PublishRetained(msg)
		// without a cache the retained flag degrades to a plain publish
		if errors.Is(err, types.ErrCacheNotInitialized) {
			return x.broker.Publish(msg)
		}
		return dispatched, err
	}
	return x.broker.Publish(msg)
}
