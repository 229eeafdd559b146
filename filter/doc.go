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

// Package filter provides the pluggable predicate dialects a subscription
// can filter with:
//
//   - selector: the SQL-92 message selector dialect (the default)
//   - expr: expr-lang expressions over the message environment
//   - js: a JavaScript function body run in a pooled engine
//
// Each dialect is registered with the Registry under its Type and is
// instantiated per subscription through Registry.New. The subscription's
// expression arrives under the "expression" configuration key; dialects may
// read further settings from the same configuration map.
//
// For example, in a subscription:
//
//	{
//	  "id": "s1",
//	  "destination": "orders/#",
//	  "dialect": "selector",
//	  "expression": "color = 'red' AND weight > 10"
//	}
package filter
