package types

// Cache is a key-value store with optional expiration, used by the broker
// for retained messages and other transient state.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Set stores a key-value pair with an optional expiration.
	// The ttl is a duration string such as "10m" or "1h"; if ttl is empty
	// or "0" the item never expires. An invalid ttl returns an error.
	Set(key string, value interface{}, ttl string) error
	// Get retrieves the value for key, or nil if it does not exist or has expired.
	Get(key string) interface{}
	// Has reports whether key exists and has not expired.
	Has(key string) bool
	// Delete removes the item stored under key.
	Delete(key string) error
	// DeleteByPrefix removes all items whose keys start with prefix.
	DeleteByPrefix(prefix string) error
	// GetByPrefix returns all live key-value pairs whose keys start with prefix.
	GetByPrefix(prefix string) map[string]interface{}
}
