// Package cache memoizes metadata API responses in two tiers: a durable
// Redis store shared across runs and a bounded in-process LRU mirror. When
// the durable tier fails the store degrades to local-only semantics and
// probes for reconnection in the background; callers never observe
// durable-tier errors. Entries expire by TTL only.
package cache
