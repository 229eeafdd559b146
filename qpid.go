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

// Package qpid is a message selector engine with an embeddable pub/sub
// broker around it. Selectors are SQL-92 conditional expressions evaluated
// against a message's header fields, user properties and JSON payload.
//
// # Selector Usage
//
// Compile once, match many times. Compiled selectors are immutable and safe
// for concurrent use:
//
//	sel, err := qpid.Compile("color = 'red' AND weight BETWEEN 2 AND 4")
//	if err != nil {
//		panic(err)
//	}
//	metaData := types.NewMetadata()
//	metaData.PutValue("color", "red")
//	metaData.PutValue("weight", "3")
//	msg := types.NewMsg(0, "ORDER_CREATED", types.JSON, metaData, "{\"total\":20}")
//	matched := sel.Filter(msg)
//
// Or go through the process-wide compilation cache:
//
//	matched, err := qpid.Match("type = 'ORDER_CREATED'", msg)
//
// Evaluation follows SQL three-valued logic. A condition over an absent
// property is Unknown, and Unknown collapses to a non-match.
//
// # Broker Usage
//
// The broker fans published messages out to subscriptions, each guarded by
// a destination pattern and an optional filter expression:
//
//	broker := qpid.New()
//	sub, err := broker.Subscribe(types.SubscriptionConfig{
//		Destination: "orders/#",
//		Expression:  "color = 'red'",
//	}, engine.NewConsumerFunc("audit", func(msg types.Message) error {
//		log.Printf("matched: %s", msg.Data)
//		return nil
//	}))
//
//	msg.Destination = "orders/created"
//	broker.Publish(msg)
//
// Filter dialects other than the default selector dialect are selected per
// subscription with SubscriptionConfig.Dialect: "expr" for expr-lang
// expressions and "js" for javascript functions. The network surfaces live
// under endpoint/: rest, websocket, mqtt and schedule.
package qpid

import (
	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/engine"
	"github.com/spitbreak/qpid/filter"
	"github.com/spitbreak/qpid/selector"
)

// Registry holds the filter dialects available to subscriptions.
var Registry = filter.Registry

// New creates a broker from the options, e.g.
// qpid.New(types.WithDefaultPool()).
func New(opts ...types.Option) *engine.Broker {
	return engine.NewBroker(NewConfig(opts...))
}

// NewConfig creates a new Config and applies the options.
func NewConfig(opts ...types.Option) types.Config {
	return types.NewConfig(opts...)
}

// Compile parses the selector text.
func Compile(text string) (*selector.Selector, error) {
	return selector.Compile(text)
}

// MustCompile is Compile that panics on invalid selectors.
func MustCompile(text string) *selector.Selector {
	return selector.MustCompile(text)
}

// GetOrCompile returns the cached compilation of text, compiling it on the
// first use.
func GetOrCompile(text string) (*selector.Selector, error) {
	return selector.GetOrCompile(text)
}

// Match evaluates the selector text against msg through the compilation
// cache. An empty selector matches everything. Unknown collapses to false.
func Match(text string, msg types.Message) (bool, error) {
	if text == "" {
		return true, nil
	}
	sel, err := selector.GetOrCompile(text)
	if err != nil {
		return false, err
	}
	return sel.Filter(msg), nil
}
