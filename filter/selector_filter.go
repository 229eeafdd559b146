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

//Subscription example:
//{
//        "id": "s1",
//        "destination": "orders/#",
//        "dialect": "selector",
//        "expression": "color = 'red' AND weight > 10"
//      }
import (
	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/selector"
	"github.com/spitbreak/qpid/utils/maps"
)

func init() {
	_ = Registry.Add(&SelectorFilter{})
}

// SelectorFilterConfiguration holds the dialect configuration.
type SelectorFilterConfiguration struct {
	// Expression is the selector source text.
	Expression string
}

// SelectorFilter filters messages with the SQL-92 selector dialect.
// Message properties are resolved from the metadata, the delivery headers
// and, for JSON payloads, payload.<field> paths. Evaluation is
// three-valued; a message is delivered only on a definite true.
//
// Compiled selectors are shared process-wide by source text, so a thousand
// subscriptions carrying the same expression hold one compiled form.
type SelectorFilter struct {
	Config SelectorFilterConfiguration
	sel    *selector.Selector
}

// Type returns the dialect name.
func (x *SelectorFilter) Type() string {
	return "selector"
}

func (x *SelectorFilter) New() types.Filter {
	return &SelectorFilter{}
}

// Init compiles the selector. Lex and parse errors are returned here so the
// subscription that carries a malformed selector is rejected synchronously.
func (x *SelectorFilter) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	sel, err := selector.GetOrCompile(x.Config.Expression)
	if err != nil {
		return err
	}
	x.sel = sel
	return nil
}

// Match reports whether the message satisfies the selector.
func (x *SelectorFilter) Match(msg types.Message) (bool, error) {
	return x.sel.Filter(msg), nil
}

// Destroy releases nothing; the compiled selector stays in the shared
// cache for other holders of the same text.
func (x *SelectorFilter) Destroy() {
}
