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

package selector

import (
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/spitbreak/qpid/api/types"
)

// Env resolves property names during evaluation. Value is only consulted
// for names Present reports true for, and both must agree for the same
// name. Values are strings; the evaluator coerces them by operator context.
type Env interface {
	Present(name string) bool
	Value(name string) string
}

// MapEnv adapts a plain map to the Env interface.
type MapEnv map[string]string

func (m MapEnv) Present(name string) bool {
	_, ok := m[name]
	return ok
}

func (m MapEnv) Value(name string) string {
	return m[name]
}

// payloadPrefix introduces names that reach into a JSON payload, e.g.
// payload.temperature or payload.device.id.
const payloadPrefix = "payload."

// MessageEnv exposes a message to selector evaluation. Names resolve in
// order: user properties in the metadata, then the delivery headers (id,
// timestamp, destination, type, priority, deliveryMode, correlationId,
// replyTo, expiration), then payload.<path> fields when the payload is
// JSON. The payload is parsed lazily on the first payload reference, so a
// MessageEnv is not safe for concurrent use; create one per evaluation.
type MessageEnv struct {
	msg     types.Message
	payload *fastjson.Value
	parsed  bool
}

func NewMessageEnv(msg types.Message) *MessageEnv {
	return &MessageEnv{msg: msg}
}

func (e *MessageEnv) Present(name string) bool {
	if e.msg.Metadata.Has(name) {
		return true
	}
	if _, ok := e.headerValue(name); ok {
		return true
	}
	if strings.HasPrefix(name, payloadPrefix) {
		_, ok := e.payloadField(name[len(payloadPrefix):])
		return ok
	}
	return false
}

func (e *MessageEnv) Value(name string) string {
	if e.msg.Metadata.Has(name) {
		return e.msg.Metadata.GetValue(name)
	}
	if v, ok := e.headerValue(name); ok {
		return v
	}
	if strings.HasPrefix(name, payloadPrefix) {
		if v, ok := e.payloadField(name[len(payloadPrefix):]); ok {
			return v
		}
	}
	return ""
}

// headerValue maps the fixed delivery headers onto selector properties.
// Optional headers that were never set do not exist, so IS NULL works on
// them; timestamp and priority always exist.
func (e *MessageEnv) headerValue(name string) (string, bool) {
	switch name {
	case "id":
		return e.msg.Id, e.msg.Id != ""
	case "timestamp":
		return strconv.FormatInt(e.msg.Ts, 10), true
	case "destination":
		return e.msg.Destination, e.msg.Destination != ""
	case "type":
		return e.msg.Type, e.msg.Type != ""
	case "priority":
		return strconv.Itoa(e.msg.Priority), true
	case "deliveryMode":
		return string(e.msg.DeliveryMode), e.msg.DeliveryMode != ""
	case "correlationId":
		return e.msg.CorrelationId, e.msg.CorrelationId != ""
	case "replyTo":
		return e.msg.ReplyTo, e.msg.ReplyTo != ""
	case "expiration":
		return strconv.FormatInt(e.msg.Expiration, 10), e.msg.Expiration > 0
	}
	return "", false
}

// payloadField resolves a dotted path inside a JSON payload. Only scalar
// fields have a value; null, objects and arrays count as absent, as does
// any path into a payload that is not valid JSON.
func (e *MessageEnv) payloadField(path string) (string, bool) {
	if !e.parsed {
		e.parsed = true
		if e.msg.DataType == types.JSON {
			if v, err := fastjson.Parse(e.msg.Data); err == nil {
				e.payload = v
			}
		}
	}
	if e.payload == nil {
		return "", false
	}
	v := e.payload.Get(strings.Split(path, ".")...)
	if v == nil {
		return "", false
	}
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b), true
	case fastjson.TypeNumber:
		return v.String(), true
	case fastjson.TypeTrue:
		return "true", true
	case fastjson.TypeFalse:
		return "false", true
	}
	return "", false
}
