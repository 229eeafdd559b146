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

import "sync"

// Cache retains compiled selectors keyed by their exact source text, so a
// selector shared by many subscriptions is compiled once and every holder
// shares the same instance. Failed compiles are never cached; each caller
// gets the error.
type Cache struct {
	mu        sync.RWMutex
	selectors map[string]*Selector
}

func NewCache() *Cache {
	return &Cache{selectors: make(map[string]*Selector)}
}

// GetOrCompile returns the cached selector for text, compiling it on first
// use. Concurrent callers racing on the same text may both compile, but
// only one instance is retained and all of them receive it.
func (c *Cache) GetOrCompile(text string) (*Selector, error) {
	c.mu.RLock()
	s, ok := c.selectors[text]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}
	compiled, err := Compile(text)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if retained, ok := c.selectors[text]; ok {
		c.mu.Unlock()
		return retained, nil
	}
	c.selectors[text] = compiled
	c.mu.Unlock()
	return compiled, nil
}

// Remove drops the cached selector for text, if present.
func (c *Cache) Remove(text string) {
	c.mu.Lock()
	delete(c.selectors, text)
	c.mu.Unlock()
}

// Len returns the number of cached selectors.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.selectors)
}

var defaultCache = NewCache()

// GetOrCompile compiles text through the process-wide selector cache.
func GetOrCompile(text string) (*Selector, error) {
	return defaultCache.GetOrCompile(text)
}
