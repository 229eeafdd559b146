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

package engine

import (
	"github.com/spitbreak/qpid/api/types"
)

// Subscription binds a destination pattern, an optional compiled filter and
// a consumer. Subscriptions are created by Broker.Subscribe and are
// immutable afterwards.
type Subscription struct {
	config   types.SubscriptionConfig
	filter   types.Filter
	consumer types.Consumer
}

// Id returns the subscription identifier.
func (s *Subscription) Id() string {
	return s.config.Id
}

// Destination returns the destination pattern subscribed to.
func (s *Subscription) Destination() string {
	return s.config.Destination
}

// Config returns a copy of the subscription configuration.
func (s *Subscription) Config() types.SubscriptionConfig {
	return s.config
}

// Match runs the subscription's filter against the message. A subscription
// without a filter matches every message on its destination.
func (s *Subscription) Match(msg types.Message) (bool, error) {
	if s.filter == nil {
		return true, nil
	}
	return s.filter.Match(msg)
}

func (s *Subscription) destroy() {
	if s.filter != nil {
		s.filter.Destroy()
	}
}
