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
//        "id": "s2",
//        "destination": "sensors/+/temperature",
//        "dialect": "expr",
//        "expression": "msg.temperature > 50"
//      }
import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/utils/maps"
)

func init() {
	_ = Registry.Add(&ExprFilter{})
}

// ExprFilterConfiguration holds the dialect configuration.
type ExprFilterConfiguration struct {
	// Expression is an expr-lang boolean expression.
	Expression string
}

// ExprFilter filters messages with an expr-lang expression.
// The expression sees `id`, `ts`, `data`, `msg`, `metadata`, `type`,
// `dataType`, `destination` and `priority`. For JSON payloads `msg` is the
// parsed document, so `msg.temperature > 50` reads a payload field;
// `metadata.customerName` reads a user property.
type ExprFilter struct {
	Config  ExprFilterConfiguration
	program *vm.Program
}

// Type returns the dialect name.
func (x *ExprFilter) Type() string {
	return "expr"
}

func (x *ExprFilter) New() types.Filter {
	return &ExprFilter{}
}

// Init compiles the expression; compile errors reject the subscription.
func (x *ExprFilter) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.Config); err != nil {
		return err
	}
	program, err := expr.Compile(x.Config.Expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return err
	}
	x.program = program
	return nil
}

// Match runs the program against the message environment. Anything but a
// definite true is no match.
func (x *ExprFilter) Match(msg types.Message) (bool, error) {
	out, err := vm.Run(x.program, ScriptEnv(msg))
	if err != nil {
		return false, err
	}
	result, ok := out.(bool)
	return ok && result, nil
}

func (x *ExprFilter) Destroy() {
}
