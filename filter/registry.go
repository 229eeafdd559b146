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

package filter

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/spitbreak/qpid/api/types"
)

// DefaultDialect is used when a subscription names no dialect but carries
// an expression.
const DefaultDialect = "selector"

// Registry is the default dialect registry. Dialect implementations
// register themselves here from their init functions.
var Registry = new(DialectRegistry)

// DialectRegistry maps dialect names to their prototype filters.
type DialectRegistry struct {
	dialects map[string]types.Filter
	sync.RWMutex
}

// Add registers a dialect prototype under its Type.
func (r *DialectRegistry) Add(f types.Filter) error {
	r.Lock()
	defer r.Unlock()
	if r.dialects == nil {
		r.dialects = make(map[string]types.Filter)
	}
	if _, ok := r.dialects[f.Type()]; ok {
		return errors.New("the dialect already exists. dialect=" + f.Type())
	}
	r.dialects[f.Type()] = f
	return nil
}

// Unregister removes a dialect.
func (r *DialectRegistry) Unregister(dialect string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.dialects[dialect]; !ok {
		return fmt.Errorf("dialect not found. dialect=%s", dialect)
	}
	delete(r.dialects, dialect)
	return nil
}

// New creates and initializes a filter instance of the given dialect. An
// empty dialect selects DefaultDialect. Compile errors in the expression
// are returned here.
func (r *DialectRegistry) New(dialect string, config types.Config, configuration types.Configuration) (types.Filter, error) {
	if dialect == "" {
		dialect = DefaultDialect
	}
	r.RLock()
	prototype, ok := r.dialects[dialect]
	r.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dialect not found. dialect=%s", dialect)
	}
	f := prototype.New()
	if err := f.Init(config, configuration); err != nil {
		return nil, err
	}
	return f, nil
}

// Dialects returns the registered dialect names, sorted.
func (r *DialectRegistry) Dialects() []string {
	r.RLock()
	defer r.RUnlock()
	var names []string
	for name := range r.dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
