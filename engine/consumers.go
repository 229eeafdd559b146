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
	"fmt"

	"github.com/spitbreak/qpid/api/types"
)

// ConsumerFunc adapts a plain function to the types.Consumer interface.
type ConsumerFunc struct {
	id string
	fn func(msg types.Message) error
}

// NewConsumerFunc wraps fn as a consumer with the given id.
func NewConsumerFunc(id string, fn func(msg types.Message) error) *ConsumerFunc {
	return &ConsumerFunc{id: id, fn: fn}
}

func (c *ConsumerFunc) ID() string {
	return c.id
}

func (c *ConsumerFunc) Deliver(msg types.Message) error {
	return c.fn(msg)
}

// ChannelConsumer hands matched messages to a buffered channel, decoupling
// the delivery workers from the reader. A full channel fails the delivery
// instead of blocking the pool.
type ChannelConsumer struct {
	id string
	ch chan types.Message
}

// NewChannelConsumer creates a channel consumer with the given buffer size.
// A non-positive size falls back to a buffer of one.
func NewChannelConsumer(id string, size int) *ChannelConsumer {
	if size <= 0 {
		size = 1
	}
	return &ChannelConsumer{id: id, ch: make(chan types.Message, size)}
}

func (c *ChannelConsumer) ID() string {
	return c.id
}

// C returns the receive side of the consumer's channel.
func (c *ChannelConsumer) C() <-chan types.Message {
	return c.ch
}

func (c *ChannelConsumer) Deliver(msg types.Message) error {
	select {
	case c.ch <- msg:
		return nil
	default:
		return fmt.Errorf("consumer %s: channel full, message %s dropped", c.id, msg.Id)
	}
}
