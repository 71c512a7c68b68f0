// Package cache provides schemakit.Cache implementations for sharing
// loaded table descriptors: an in-process Memory cache and a Redis cache
// backed by go-redis.
package cache
