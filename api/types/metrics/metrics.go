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

package metrics

import (
	"sync/atomic"
)

// DeliveryMetrics holds counters for broker publish and delivery activity.
type DeliveryMetrics struct {
	Published int64 // Messages accepted for publication
	Delivered int64 // Deliveries handed to a consumer
	Filtered  int64 // Deliveries suppressed by a subscription filter
	Expired   int64 // Messages dropped because their expiration passed
	Failed    int64 // Deliveries that returned an error
}

// NewDeliveryMetrics creates a new instance of DeliveryMetrics.
func NewDeliveryMetrics() *DeliveryMetrics {
	m := &DeliveryMetrics{}
	return m
}

// IncrementPublished increases the count of published messages.
func (m *DeliveryMetrics) IncrementPublished() {
	atomic.AddInt64(&m.Published, 1)
}

// IncrementDelivered increases the count of completed deliveries.
func (m *DeliveryMetrics) IncrementDelivered() {
	atomic.AddInt64(&m.Delivered, 1)
}

// IncrementFiltered increases the count of filtered-out deliveries.
func (m *DeliveryMetrics) IncrementFiltered() {
	atomic.AddInt64(&m.Filtered, 1)
}

// IncrementExpired increases the count of expired messages.
func (m *DeliveryMetrics) IncrementExpired() {
	atomic.AddInt64(&m.Expired, 1)
}

// IncrementFailed increases the count of failed deliveries.
func (m *DeliveryMetrics) IncrementFailed() {
	atomic.AddInt64(&m.Failed, 1)
}

// Get returns a copy of the current metrics.
func (m *DeliveryMetrics) Get() DeliveryMetrics {
	return DeliveryMetrics{
		Published: atomic.LoadInt64(&m.Published),
		Delivered: atomic.LoadInt64(&m.Delivered),
		Filtered:  atomic.LoadInt64(&m.Filtered),
		Expired:   atomic.LoadInt64(&m.Expired),
		Failed:    atomic.LoadInt64(&m.Failed),
	}
}

// Reset resets all metrics to zero.
func (m *DeliveryMetrics) Reset() {
	atomic.StoreInt64(&m.Published, 0)
	atomic.StoreInt64(&m.Delivered, 0)
	atomic.StoreInt64(&m.Filtered, 0)
	atomic.StoreInt64(&m.Expired, 0)
	atomic.StoreInt64(&m.Failed, 0)
}
