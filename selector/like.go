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
	"errors"
	"regexp"
	"strings"
)

// compileLike turns a LIKE pattern into an anchored regular expression.
// '%' matches any run of characters including none, '_' matches exactly one
// character, and a character preceded by the escape character matches
// itself. Everything else is taken literally.
func compileLike(pattern, escape string) (*regexp.Regexp, error) {
	var escRune rune
	hasEscape := false
	if escape != "" {
		escRune = []rune(escape)[0]
		hasEscape = true
	}
	var sb strings.Builder
	sb.WriteString("(?s)^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if hasEscape && r == escRune {
			if i+1 >= len(runes) {
				return nil, errors.New("LIKE pattern ends with the escape character")
			}
			i++
			sb.WriteString(regexp.QuoteMeta(string(runes[i])))
			continue
		}
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
