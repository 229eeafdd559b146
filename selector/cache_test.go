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

	"github.com/spitbreak/qpid/test/assert"
)

func TestCacheReturnsSameInstance(t *testing.T) {
	c := NewCache()
	s1, err := c.GetOrCompile("weight > 10")
	assert.Nil(t, err)
	s2, err := c.GetOrCompile("weight > 10")
	assert.Nil(t, err)
	assert.True(t, s1 == s2)
	assert.Equal(t, 1, c.Len())

	// A textually different selector is a different entry even when it is
	// semantically the same.
	s3, err := c.GetOrCompile("weight>10")
	assert.Nil(t, err)
	assert.True(t, s1 != s3)
	assert.Equal(t, 2, c.Len())
}

func TestCacheFailedCompileIsNotCached(t *testing.T) {
	c := NewCache()
	_, err := c.GetOrCompile("color = ")
	assert.NotNil(t, err)
	assert.Equal(t, 0, c.Len())

	// Every caller gets the error again, not a stale nil entry.
	_, err = c.GetOrCompile("color = ")
	assert.NotNil(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestCacheRemove(t *testing.T) {
	c := NewCache()
	s1, err := c.GetOrCompile("a = 1")
	assert.Nil(t, err)
	c.Remove("a = 1")
	assert.Equal(t, 0, c.Len())

	s2, err := c.GetOrCompile("a = 1")
	assert.Nil(t, err)
	assert.True(t, s1 != s2)

	// Removing an unknown text is a no-op.
	c.Remove("never seen")
}

func TestCacheConcurrentCompile(t *testing.T) {
	c := NewCache()
	const workers = 32
	results := make([]*Selector, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := c.GetOrCompile("color = 'red' AND weight BETWEEN 10 AND 20")
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, c.Len())
	for i := 1; i < workers; i++ {
		assert.True(t, results[0] == results[i], "worker", i)
	}
}

func TestPackageLevelGetOrCompile(t *testing.T) {
	s1, err := GetOrCompile("priority >= 7")
	assert.Nil(t, err)
	s2, err := GetOrCompile("priority >= 7")
	assert.Nil(t, err)
	assert.True(t, s1 == s2)
	defaultCache.Remove("priority >= 7")
}
