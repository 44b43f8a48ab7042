// Package cache holds the two storage tiers behind the virtual file server:
// an in-process Volatile map rebuilt wholesale on every upload batch, and a
// durable Store (SQLite or Redis) that lets the batch survive restarts.
// Both tiers satisfy the Tier lookup contract so the resolver can walk them
// in priority order without knowing which backend answered. Misses are
// reported as ErrNotFound; engine faults wrap ErrPersistenceRead /
// ErrPersistenceWrite so callers can tell the two apart.
package cache
