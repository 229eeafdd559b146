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
	"sync"
	"testing"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/test/assert"
)

func TestCompile(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s, err := Compile("color = 'red' AND weight > 10")
		assert.Nil(t, err)
		assert.NotNil(t, s)
		assert.Equal(t, "color = 'red' AND weight > 10", s.Text())
	})
	t.Run("parseErrorType", func(t *testing.T) {
		s, err := Compile("color = ")
		assert.Nil(t, s)
		assert.NotNil(t, err)
		_, ok := err.(*ParseError)
		assert.True(t, ok)
	})
	t.Run("lexErrorType", func(t *testing.T) {
		s, err := Compile("color = 'red")
		assert.Nil(t, s)
		assert.NotNil(t, err)
		_, ok := err.(*LexError)
		assert.True(t, ok)
	})
}

func TestMustCompile(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s := MustCompile("a = 1")
		assert.NotNil(t, s)
	})
	t.Run("panicsOnError", func(t *testing.T) {
		defer func() {
			assert.NotNil(t, recover())
		}()
		MustCompile("a = ")
	})
}

func TestMatchCollapsesUnknown(t *testing.T) {
	s := MustCompile("weight > 10")
	assert.True(t, s.Match(MapEnv{"weight": "15"}))
	assert.False(t, s.Match(MapEnv{"weight": "5"}))
	// Absent property: Unknown, which must not deliver.
	assert.Equal(t, Unknown, s.Eval(MapEnv{}))
	assert.False(t, s.Match(MapEnv{}))
	// Unparsable value: Unknown as well.
	assert.False(t, s.Match(MapEnv{"weight": "heavy"}))
}

func TestSelectorConcurrentUse(t *testing.T) {
	s := MustCompile("color = 'red' AND payload.temperature > 20")
	md := types.NewMetadata()
	md.PutValue("color", "red")
	msg := types.NewMsg(0, "T", types.JSON, md, `{"temperature": 21.5}`)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !s.Filter(msg) {
					t.Error("expected match")
					return
				}
			}
		}()
	}
	wg.Wait()
}
