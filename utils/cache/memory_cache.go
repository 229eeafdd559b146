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

// Package cache provides the in-memory types.Cache implementation the broker
// uses for retained messages and other expirable runtime state.
package cache

import (
	"sync"
	"time"

	"github.com/spitbreak/qpid/api/types"
)

var DefaultCache = NewMemoryCache(time.Minute * 5)

// MemoryCache is an in-memory cache with optional per-item expiration.
// Garbage collection of expired items starts lazily with the first
// expirable item and pauses again once none remain.
type MemoryCache struct {
	items      map[string]item
	mu         sync.RWMutex
	stopGc     chan struct{}
	ticker     *time.Ticker
	gcInterval time.Duration
}

// item holds a cached value and its expiration as a Unix nano timestamp.
// Zero expiration means the item never expires.
type item struct {
	value      interface{}
	expiration int64
}

// NewMemoryCache creates a MemoryCache whose GC runs at gcInterval once
// started. A non-positive interval falls back to five minutes.
func NewMemoryCache(gcInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		items:      make(map[string]item),
		stopGc:     make(chan struct{}),
		gcInterval: time.Minute * 5,
	}
	if gcInterval > 0 {
		c.gcInterval = gcInterval
	}
	return c
}

// Set stores a key-value pair. ttl is a duration string such as "10m"; empty
// or zero ttl keeps the item forever. An unparsable ttl returns the error.
func (c *MemoryCache) Set(key string, value interface{}, ttl string) error {
	var expiration int64
	var dur time.Duration
	var err error

	if ttl != "" {
		dur, err = time.ParseDuration(ttl)
		if err != nil {
			return err
		}
	}

	if dur > 0 {
		expiration = time.Now().Add(dur).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = item{
		value:      value,
		expiration: expiration,
	}
	shouldStartGC := expiration > 0 && c.ticker == nil
	c.mu.Unlock()

	if shouldStartGC {
		c.StartGC()
	}

	return nil
}

// Get returns the value for key, or nil if the key is absent or expired.
// Expired items are left for the GC to collect.
func (c *MemoryCache) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found {
		return nil
	}

	if it.expiration > 0 && time.Now().UnixNano() > it.expiration {
		return nil
	}

	return it.value
}

// Has reports whether key exists and has not expired.
func (c *MemoryCache) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found {
		return false
	}

	if it.expiration > 0 && time.Now().UnixNano() > it.expiration {
		return false
	}

	return true
}

func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// DeleteByPrefix removes all cache items with the given prefix.
func (c *MemoryCache) DeleteByPrefix(prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.items, k)
		}
	}
	return nil
}

// GetByPrefix returns all live key-value pairs with keys matching prefix.
func (c *MemoryCache) GetByPrefix(prefix string) map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]interface{})
	now := time.Now().UnixNano()

	for k, v := range c.items {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			if v.expiration == 0 || now <= v.expiration {
				result[k] = v.value
			}
		}
	}

	return result
}

// StartGC starts the background collection of expired items. It is a no-op
// if GC is already running or no item carries an expiration.
func (c *MemoryCache) StartGC() {
	c.mu.Lock()
	if c.ticker != nil {
		c.mu.Unlock()
		return
	}

	hasExpirable := false
	for _, itm := range c.items {
		if itm.expiration > 0 {
			hasExpirable = true
			break
		}
	}

	if !hasExpirable {
		c.mu.Unlock()
		return
	}

	c.ticker = time.NewTicker(c.gcInterval)
	c.stopGc = make(chan struct{})
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-c.ticker.C:
				c.deleteExpired()
			case <-c.stopGc:
				c.ticker.Stop()
				c.mu.Lock()
				c.ticker = nil
				c.mu.Unlock()
				return
			}
		}
	}()
}

// StopGC signals the GC goroutine to stop. Safe to call multiple times.
func (c *MemoryCache) StopGC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker != nil && c.stopGc != nil {
		select {
		case <-c.stopGc:
			// already signaled
		default:
			close(c.stopGc)
		}
	}
}

// deleteExpired removes expired items. Keys are collected under a read lock
// and deleted in batches under the write lock, re-checking expiration since
// an item may have been replaced in between. GC pauses itself when no
// expirable items remain.
func (c *MemoryCache) deleteExpired() {
	now := time.Now().UnixNano()

	c.mu.RLock()
	var expiredKeys []string
	for k, v := range c.items {
		if v.expiration > 0 && now > v.expiration {
			expiredKeys = append(expiredKeys, k)
		}
	}
	c.mu.RUnlock()

	if len(expiredKeys) == 0 {
		return
	}

	const batchSize = 300
	for i := 0; i < len(expiredKeys); i += batchSize {
		c.mu.Lock()
		end := i + batchSize
		if end > len(expiredKeys) {
			end = len(expiredKeys)
		}
		for _, k := range expiredKeys[i:end] {
			if item, found := c.items[k]; found && item.expiration > 0 && now > item.expiration {
				delete(c.items, k)
			}
		}
		c.mu.Unlock()
	}

	c.mu.RLock()
	hasExpirableRemaining := false
	for _, itm := range c.items {
		if itm.expiration > 0 {
			hasExpirableRemaining = true
			break
		}
	}
	c.mu.RUnlock()

	if !hasExpirableRemaining {
		c.StopGC()
	}
}

// NamespaceCache prefixes every key of an underlying cache, isolating one
// module's entries from another's. The broker uses it to keep retained
// messages apart from other runtime state in the shared Config.Cache.
type NamespaceCache struct {
	Cache     types.Cache
	Namespace string
}

// NewNamespaceCache wraps cache with the given namespace prefix.
// Returns nil if cache is nil.
func NewNamespaceCache(cache types.Cache, namespace string) *NamespaceCache {
	if cache == nil {
		return nil
	}
	return &NamespaceCache{
		Cache:     cache,
		Namespace: namespace,
	}
}

func (c *NamespaceCache) Set(key string, value interface{}, ttl string) error {
	if c == nil || c.Cache == nil {
		return types.ErrCacheNotInitialized
	}
	return c.Cache.Set(c.Namespace+key, value, ttl)
}

func (c *NamespaceCache) Get(key string) interface{} {
	if c == nil || c.Cache == nil {
		return nil
	}
	return c.Cache.Get(c.Namespace + key)
}

func (c *NamespaceCache) Delete(key string) error {
	if c == nil || c.Cache == nil {
		return types.ErrCacheNotInitialized
	}
	return c.Cache.Delete(c.Namespace + key)
}

func (c *NamespaceCache) Has(key string) bool {
	if c == nil || c.Cache == nil {
		return false
	}
	return c.Cache.Has(c.Namespace + key)
}

func (c *NamespaceCache) DeleteByPrefix(prefix string) error {
	if c == nil || c.Cache == nil {
		return types.ErrCacheNotInitialized
	}
	return c.Cache.DeleteByPrefix(c.Namespace + prefix)
}

// GetByPrefix returns matching entries with the namespace stripped back off
// the keys.
func (c *NamespaceCache) GetByPrefix(prefix string) map[string]interface{} {
	if c == nil || c.Cache == nil {
		return map[string]interface{}{}
	}
	result := c.Cache.GetByPrefix(c.Namespace + prefix)
	newResult := make(map[string]interface{})
	for k, v := range result {
		if len(k) > len(c.Namespace) {
			newResult[k[len(c.Namespace):]] = v
		}
	}
	return newResult
}

// Ensure NamespaceCache implements the Cache interface.
var _ types.Cache = (*NamespaceCache)(nil)

// Ensure MemoryCache implements the Cache interface.
var _ types.Cache = (*MemoryCache)(nil)
