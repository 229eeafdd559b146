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
	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/utils/json"
)

// ScriptEnv builds the variable environment the script dialects evaluate
// in. `msg` is the parsed payload when the message carries JSON, the raw
// payload string otherwise; `data` is always the raw payload. Endpoints
// reuse it for ${} templates over message fields.
func ScriptEnv(msg types.Message) map[string]interface{} {
	var data interface{} = msg.Data
	if msg.DataType == types.JSON {
		var parsed interface{}
		if err := json.Unmarshal([]byte(msg.Data), &parsed); err == nil {
			data = parsed
		}
	}
	return map[string]interface{}{
		"id":          msg.Id,
		"ts":          msg.Ts,
		"data":        msg.Data,
		"msg":         data,
		"metadata":    msg.Metadata.Values(),
		"type":        msg.Type,
		"dataType":    string(msg.DataType),
		"destination": msg.Destination,
		"priority":    msg.Priority,
	}
}
