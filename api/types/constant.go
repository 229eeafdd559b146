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

package types

import "errors"

const (
	// NamespaceSeparator defines the separator for cache namespace prefixes.
	NamespaceSeparator = ":"
	// EndpointTypePrefix namespaces endpoint type names.
	EndpointTypePrefix = "endpoint/"
)

var (
	// ErrCacheNotInitialized is returned by cache wrappers whose underlying cache is nil.
	ErrCacheNotInitialized = errors.New("cache not initialized")
	// ErrBrokerShuttingDown is returned when the broker is shutting down and cannot accept new messages.
	ErrBrokerShuttingDown = errors.New("broker is shutting down")
	// ErrSubscriptionNotFound is returned when the referenced subscription does not exist.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrConsumerNil is returned when a subscription is created without a consumer.
	ErrConsumerNil = errors.New("consumer can not be nil")
	// ErrDestinationEmpty is returned when a message or subscription has no destination.
	ErrDestinationEmpty = errors.New("destination can not be empty")
)
