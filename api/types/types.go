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

// Configuration is the generic key-value form component configs arrive in
// before being decoded into their typed config structs.
type Configuration map[string]interface{}

// Filter is the pluggable predicate contract. A filter is compiled once from
// its configuration and then asked, per candidate message, whether the
// message should be delivered.
//
// Implementations are registered by Type in the filter package registry. The
// default dialect is the SQL-92 selector; expr and js dialects are provided
// as alternatives.
type Filter interface {
	// Type returns the dialect name, e.g. "selector", "expr", "js".
	Type() string
	// New creates an uninitialized instance of this filter type.
	New() Filter
	// Init compiles the filter from its configuration. Compile errors are
	// returned here, synchronously, so a bad predicate is rejected when the
	// subscription is created rather than during delivery.
	Init(config Config, configuration Configuration) error
	// Match reports whether the message satisfies the predicate. A non-nil
	// error means the predicate could not be evaluated; the engine treats
	// that as no-match.
	Match(msg Message) (bool, error)
	// Destroy releases any resources held by the filter.
	Destroy()
}

// SubscriptionConfig describes a subscription to a destination, optionally
// narrowed by a filter expression.
type SubscriptionConfig struct {
	// Id is the subscription identifier. If empty, one is generated.
	Id string `json:"id"`
	// Destination is the destination pattern to subscribe to. Patterns use
	// `/` separated segments where `+` matches one segment and `#` matches
	// the remaining segments.
	Destination string `json:"destination"`
	// Dialect selects the filter dialect, e.g. "selector", "expr", "js".
	// Empty selects the default dialect.
	Dialect string `json:"dialect"`
	// Expression is the filter predicate source text in the chosen dialect.
	// When both Dialect and Expression are empty the subscription matches
	// every message on its destination.
	Expression string `json:"expression"`
	// DebugMode enables the Config.OnDeliver callback for this subscription.
	DebugMode bool `json:"debugMode"`
	// Configuration carries extra dialect-specific settings.
	Configuration Configuration `json:"configuration,omitempty"`
}

// Consumer receives the messages a subscription matched.
type Consumer interface {
	// ID identifies the consumer for logging and debugging.
	ID() string
	// Deliver hands a matched message to the consumer. Deliver must be safe
	// for concurrent use; a returned error counts the delivery as failed.
	Deliver(msg Message) error
}

// Pool is the task pool used for asynchronous delivery fan-out.
type Pool interface {
	// Submit schedules a task, returning an error if the pool is saturated.
	Submit(task func()) error
	// Release stops the pool.
	Release()
}

// Script types.
const (
	Js = "Js"
	// AllScript marks a udf as available to every script dialect.
	AllScript = "All"
)

// ScriptFuncSeparator separates the script type from the function name for
// udf registered per script type.
const ScriptFuncSeparator = "#"

// Script registers a native script or a Go-defined custom function for use
// by the script-based filter dialects.
type Script struct {
	// Type is the script type, Js by default.
	Type string
	// Content is the script source or the Go function value.
	Content interface{}
}
