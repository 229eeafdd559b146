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

// Package engine implements the broker: subscriptions bound to destination
// patterns, per-subscription filters, and the delivery fan-out that routes
// each published message to the consumers whose predicates it satisfies.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/api/types/metrics"
	"github.com/spitbreak/qpid/filter"
	"github.com/spitbreak/qpid/utils/cache"
	"github.com/spitbreak/qpid/utils/runtime"
)

// retainedNamespace prefixes retained message keys in the shared cache.
const retainedNamespace = "retained" + types.NamespaceSeparator

// Broker routes published messages to matching subscriptions. Matching is
// two-staged: the destination pattern selects candidate subscriptions, then
// each subscription's filter decides delivery. Filters are compiled when
// the subscription is created, so Publish never sees a compile error.
type Broker struct {
	config        types.Config
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	metrics       *metrics.DeliveryMetrics
	retained      *cache.NamespaceCache
	stopped       int32
	wg            sync.WaitGroup
}

// NewBroker creates a broker with the given configuration. The pool and
// cache referenced by the configuration stay owned by the caller.
func NewBroker(config types.Config) *Broker {
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	return &Broker{
		config:        config,
		subscriptions: make(map[string]*Subscription),
		metrics:       metrics.NewDeliveryMetrics(),
		retained:      cache.NewNamespaceCache(config.Cache, retainedNamespace),
	}
}

// Subscribe registers a subscription and returns it. The filter named by
// the configuration is compiled here; a malformed expression rejects the
// subscription synchronously. A subscription with an empty dialect and
// expression matches every message on its destination. Retained messages
// matching the new subscription are delivered immediately.
func (b *Broker) Subscribe(config types.SubscriptionConfig, consumer types.Consumer) (*Subscription, error) {
	if atomic.LoadInt32(&b.stopped) == 1 {
		return nil, types.ErrBrokerShuttingDown
	}
	if consumer == nil {
		return nil, types.ErrConsumerNil
	}
	if config.Destination == "" {
		return nil, types.ErrDestinationEmpty
	}
	if config.Id == "" {
		uuId, _ := uuid.NewV4()
		config.Id = uuId.String()
	}

	var f types.Filter
	if config.Expression != "" || config.Dialect != "" {
		configuration := types.Configuration{}
		for k, v := range config.Configuration {
			configuration[k] = v
		}
		configuration["expression"] = config.Expression
		var err error
		f, err = filter.Registry.New(config.Dialect, b.config, configuration)
		if err != nil {
			return nil, err
		}
	}
	sub := &Subscription{config: config, filter: f, consumer: consumer}

	b.mu.Lock()
	if _, ok := b.subscriptions[config.Id]; ok {
		b.mu.Unlock()
		sub.destroy()
		return nil, fmt.Errorf("subscription already exists. id=%s", config.Id)
	}
	b.subscriptions[config.Id] = sub
	b.mu.Unlock()

	b.deliverRetained(sub)
	return sub, nil
}

// Unsubscribe removes a subscription and destroys its filter.
func (b *Broker) Unsubscribe(id string) error {
	b.mu.Lock()
	sub, ok := b.subscriptions[id]
	if ok {
		delete(b.subscriptions, id)
	}
	b.mu.Unlock()
	if !ok {
		return types.ErrSubscriptionNotFound
	}
	sub.destroy()
	return nil
}

// Subscription returns the subscription with the given id.
func (b *Broker) Subscription(id string) (*Subscription, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sub, ok := b.subscriptions[id]
	return sub, ok
}

// Subscriptions returns a snapshot of all subscriptions, sorted by id.
func (b *Broker) Subscriptions() []*Subscription {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].Id() < subs[j].Id()
	})
	return subs
}

// Publish routes the message to every subscription whose destination
// pattern covers the message destination. Filtering and delivery run
// asynchronously on the configured pool. The returned count is the number
// of subscriptions the message was dispatched to, not the number of
// successful deliveries; already expired messages are dropped with a count
// of zero.
func (b *Broker) Publish(msg types.Message) (int, error) {
	if atomic.LoadInt32(&b.stopped) == 1 {
		return 0, types.ErrBrokerShuttingDown
	}
	if msg.Destination == "" {
		return 0, types.ErrDestinationEmpty
	}
	if msg.Expired(time.Now().UnixMilli()) {
		b.metrics.IncrementExpired()
		return 0, nil
	}
	b.metrics.IncrementPublished()

	b.mu.RLock()
	matched := make([]*Subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		if MatchDestination(sub.Destination(), msg.Destination) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		b.dispatch(sub, msg)
	}
	return len(matched), nil
}

// PublishRetained publishes the message and retains it for its destination,
// so a later matching subscription receives it on subscribe. A message with
// an empty payload clears the retention. Retaining requires a cache in the
// broker configuration.
func (b *Broker) PublishRetained(msg types.Message) (int, error) {
	if msg.Destination == "" {
		return 0, types.ErrDestinationEmpty
	}
	if msg.Data == "" {
		if err := b.retained.Delete(msg.Destination); err != nil {
			return 0, err
		}
	} else if err := b.retained.Set(msg.Destination, msg, ""); err != nil {
		return 0, err
	}
	return b.Publish(msg)
}

// deliverRetained hands the retained messages under the subscription's
// pattern to it. Retained messages that expired in the cache are dropped
// here.
func (b *Broker) deliverRetained(sub *Subscription) {
	for dest, v := range b.retained.GetByPrefix("") {
		msg, ok := v.(types.Message)
		if !ok || !MatchDestination(sub.Destination(), dest) {
			continue
		}
		if msg.Expired(time.Now().UnixMilli()) {
			b.metrics.IncrementExpired()
			_ = b.retained.Delete(dest)
			continue
		}
		b.dispatch(sub, msg)
	}
}

// dispatch schedules filtering plus delivery for one subscription. When the
// pool rejects the task the delivery degrades to synchronous so no message
// is silently lost.
func (b *Broker) dispatch(sub *Subscription, msg types.Message) {
	b.wg.Add(1)
	task := func() {
		defer b.wg.Done()
		b.deliver(sub, msg.Copy())
	}
	if b.config.Pool != nil {
		if err := b.config.Pool.Submit(task); err != nil {
			b.config.Logger.Printf("broker: pool rejected delivery, running synchronously: %s", err)
			task()
		}
	} else {
		go task()
	}
}

func (b *Broker) deliver(sub *Subscription, msg types.Message) {
	defer func() {
		if e := recover(); e != nil {
			b.metrics.IncrementFailed()
			b.config.Logger.Printf("broker: consumer %s panic :%v\n%v", sub.Id(), e, runtime.Stack())
		}
	}()
	matched, err := sub.Match(msg)
	if err != nil {
		b.metrics.IncrementFailed()
		b.onDeliver(sub, msg, false, err)
		return
	}
	if !matched {
		b.metrics.IncrementFiltered()
		b.onDeliver(sub, msg, false, nil)
		return
	}
	if err = sub.consumer.Deliver(msg); err != nil {
		b.metrics.IncrementFailed()
		b.onDeliver(sub, msg, true, err)
		return
	}
	b.metrics.IncrementDelivered()
	b.onDeliver(sub, msg, true, nil)
}

func (b *Broker) onDeliver(sub *Subscription, msg types.Message, matched bool, err error) {
	if sub.config.DebugMode && b.config.OnDeliver != nil {
		b.config.OnDeliver(msg.Destination, sub.Id(), msg, matched, err)
	}
}

// Metrics returns a snapshot of the delivery counters.
func (b *Broker) Metrics() metrics.DeliveryMetrics {
	return b.metrics.Get()
}

// ResetMetrics zeroes the delivery counters.
func (b *Broker) ResetMetrics() {
	b.metrics.Reset()
}

// Restore recreates subscriptions from stored configurations. The consumers
// factory supplies the consumer for each configuration; returning nil skips
// the entry. Restore continues past individual failures and returns them
// joined.
func (b *Broker) Restore(configs []types.SubscriptionConfig, consumers func(types.SubscriptionConfig) types.Consumer) error {
	var errs []error
	for _, cfg := range configs {
		consumer := consumers(cfg)
		if consumer == nil {
			continue
		}
		if _, err := b.Subscribe(cfg, consumer); err != nil {
			errs = append(errs, fmt.Errorf("restore subscription %s: %w", cfg.Id, err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown stops accepting publishes and subscriptions, waits for in-flight
// deliveries until ctx expires, then destroys all subscriptions. The pool
// and cache in the configuration belong to the caller and are not released.
func (b *Broker) Shutdown(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&b.stopped, 0, 1) {
		return nil
	}
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	b.mu.Lock()
	subs := b.subscriptions
	b.subscriptions = make(map[string]*Subscription)
	b.mu.Unlock()
	for _, sub := range subs {
		sub.destroy()
	}
	return err
}
