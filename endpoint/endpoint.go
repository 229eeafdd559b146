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

// Package endpoint defines the contract the broker's network surfaces
// implement. The concrete endpoints live in the subpackages:
//
//   - rest: HTTP management and publish API
//   - websocket: streaming subscriptions over a websocket
//   - mqtt: bridge to an external MQTT broker
//   - schedule: cron driven publishing
//
// Every endpoint is bound to one engine.Broker at construction and owns a
// Start/Shutdown lifecycle independent of the broker's.
package endpoint

import "context"

// Endpoint is a message source, sink or management surface bound to a
// broker.
type Endpoint interface {
	// Type returns the endpoint type, e.g. "rest".
	Type() string
	// Start begins serving. It returns once the endpoint accepts traffic;
	// serving continues in the background.
	Start() error
	// Shutdown stops serving, bounded by ctx. The bound broker is left
	// running.
	Shutdown(ctx context.Context) error
}
