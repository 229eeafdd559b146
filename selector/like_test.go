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
	"testing"

	"github.com/spitbreak/qpid/test/assert"
)

func TestCompileLike(t *testing.T) {
	match := func(pattern, escape, input string) bool {
		t.Helper()
		re, err := compileLike(pattern, escape)
		if err != nil {
			t.Fatalf("compileLike(%q, %q): %v", pattern, escape, err)
		}
		return re.MatchString(input)
	}

	t.Run("anchoring", func(t *testing.T) {
		assert.True(t, match("abc", "", "abc"))
		assert.False(t, match("abc", "", "xabc"))
		assert.False(t, match("abc", "", "abcx"))
	})
	t.Run("percent", func(t *testing.T) {
		assert.True(t, match("ab%", "", "ab"))
		assert.True(t, match("ab%", "", "abcdef"))
		assert.True(t, match("%cd", "", "abcd"))
		assert.True(t, match("a%d", "", "ad"))
		assert.False(t, match("a%d", "", "adx"))
	})
	t.Run("underscore", func(t *testing.T) {
		assert.True(t, match("a_c", "", "abc"))
		assert.False(t, match("a_c", "", "ac"))
		assert.False(t, match("a_c", "", "abbc"))
	})
	t.Run("percentCrossesNewlines", func(t *testing.T) {
		assert.True(t, match("a%b", "", "a\nb"))
	})
	t.Run("metacharactersAreLiteral", func(t *testing.T) {
		assert.True(t, match("a.b", "", "a.b"))
		assert.False(t, match("a.b", "", "axb"))
		assert.True(t, match("(v)", "", "(v)"))
		assert.True(t, match("c++", "", "c++"))
	})
	t.Run("escapedWildcards", func(t *testing.T) {
		assert.True(t, match("100!%", "!", "100%"))
		assert.False(t, match("100!%", "!", "1000"))
		assert.True(t, match("a!_c", "!", "a_c"))
		assert.False(t, match("a!_c", "!", "abc"))
	})
	t.Run("escapedEscape", func(t *testing.T) {
		assert.True(t, match("a!!b", "!", "a!b"))
	})
	t.Run("backslashEscape", func(t *testing.T) {
		assert.True(t, match(`J\_n%`, `\`, "J_ne"))
		assert.False(t, match(`J\_n%`, `\`, "Jane"))
	})
	t.Run("danglingEscape", func(t *testing.T) {
		_, err := compileLike("abc!", "!")
		assert.NotNil(t, err)
	})
	t.Run("multibyte", func(t *testing.T) {
		assert.True(t, match("警_", "", "警告"))
		assert.True(t, match("温度%", "", "温度21.5"))
	})
}
