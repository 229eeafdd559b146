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
//        "id": "s3",
//        "destination": "orders/#",
//        "dialect": "js",
//        "expression": "var order = JSON.parse(msg); return order.total > 100;"
//      }
import (
	"fmt"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/utils/js"
	"github.com/spitbreak/qpid/utils/maps"
)

func init() {
	_ = Registry.Add(&JsFilter{})
}

// JsFilterConfiguration holds the dialect configuration.
type JsFilterConfiguration struct {
	// Expression is the body of the filter function:
	//   function Filter(msg, metadata, msgType) { ${Expression} }
	// It must return a boolean.
	Expression string
}

// JsFilter filters messages with a JavaScript function body.
// The payload is passed to the function as a string in `msg`, the user
// properties as `metadata` and the message type as `msgType`. The script
// runs in a pooled engine bounded by Config.ScriptMaxExecutionTime.
type JsFilter struct {
	config   JsFilterConfiguration
	jsEngine *js.GojaJsEngine
}

// Type returns the dialect name.
func (x *JsFilter) Type() string {
	return "js"
}

func (x *JsFilter) New() types.Filter {
	return &JsFilter{}
}

// Init compiles the script; compile errors reject the subscription.
func (x *JsFilter) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &x.config); err != nil {
		return err
	}
	jsScript := fmt.Sprintf("function Filter(msg, metadata, msgType) { %s }", x.config.Expression)
	jsEngine, err := js.NewGojaJsEngine(config, jsScript, nil)
	if err != nil {
		return err
	}
	x.jsEngine = jsEngine
	return nil
}

// Match runs the filter function. Anything but a definite true is no match.
func (x *JsFilter) Match(msg types.Message) (bool, error) {
	out, err := x.jsEngine.Execute("Filter", msg.Data, msg.Metadata.Values(), msg.Type)
	if err != nil {
		return false, err
	}
	result, ok := out.(bool)
	return ok && result, nil
}

func (x *JsFilter) Destroy() {
	if x.jsEngine != nil {
		x.jsEngine.Stop()
	}
}
