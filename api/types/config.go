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

import (
	"math"
	"time"

	"github.com/spitbreak/qpid/utils/pool"
)

// Config defines the configuration shared by the broker engine and the
// filter dialects.
type Config struct {
	// OnDeliver is a callback invoked after every delivery attempt. It is
	// only called if the subscription's debugMode is set to true.
	// - destination: the destination the message was published to.
	// - subscriptionId: the ID of the subscription whose filter was applied.
	// - msg: the message that was evaluated.
	// - matched: whether the subscription's filter selected the message.
	// - err: filter evaluation or consumer delivery error, if any.
	OnDeliver func(destination string, subscriptionId string, msg Message, matched bool, err error)
	// ScriptMaxExecutionTime is the maximum execution time for script
	// filters, defaulting to 2000 milliseconds.
	ScriptMaxExecutionTime time.Duration
	// Pool is the task pool used for delivery fan-out. If not configured,
	// plain go statements are used.
	// The default implementation is `pool.WorkerPool`. It is compatible with
	// the ants pool and can be replaced by it.
	// Example:
	//   pool, _ := ants.NewPool(math.MaxInt32)
	//   config := qpid.NewConfig(types.WithPool(pool))
	Pool Pool
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// Properties are global properties in key-value format. Filter
	// expressions and endpoint configurations can reference them.
	Properties Metadata
	// Udf is a map for registering custom Golang functions and native
	// scripts that script filter dialects can call at runtime.
	// Function names can be repeated for different script types.
	Udf map[string]interface{}
	// Cache is a runtime cache shared across the broker, used for retained
	// messages and other transient state.
	Cache Cache
}

// RegisterUdf registers a custom function. Function names can be repeated for different script types.
func (c *Config) RegisterUdf(name string, value interface{}) {
	if c.Udf == nil {
		c.Udf = make(map[string]interface{})
	}
	if script, ok := value.(Script); ok {
		// Resolve function name conflicts for different script types.
		name = script.Type + ScriptFuncSeparator + name
	}
	c.Udf[name] = value
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		ScriptMaxExecutionTime: time.Millisecond * 2000,
		Logger:                 DefaultLogger(),
		Properties:             NewMetadata(),
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}

// DefaultPool provides a default task pool.
func DefaultPool() Pool {
	wp := &pool.WorkerPool{MaxWorkersCount: math.MaxInt32}
	wp.Start()
	return wp
}
