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

package engine

import "strings"

// MatchDestination reports whether a concrete destination falls under a
// subscription pattern. Patterns are `/` separated segments; `+` matches
// exactly one segment and a trailing `#` matches everything from there on,
// including nothing. A `#` anywhere else is a literal segment.
func MatchDestination(pattern, destination string) bool {
	if pattern == destination {
		return true
	}
	patternSegs := strings.Split(pattern, "/")
	destSegs := strings.Split(destination, "/")
	for i, seg := range patternSegs {
		if seg == "#" && i == len(patternSegs)-1 {
			return true
		}
		if i >= len(destSegs) {
			return false
		}
		if seg == "+" {
			continue
		}
		if seg != destSegs[i] {
			return false
		}
	}
	return len(patternSegs) == len(destSegs)
}
