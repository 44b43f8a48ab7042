// Package view resolves virtual file requests against the cache tiers and
// renders them as HTTP responses. Resolution walks the tiers in priority
// order (memory, then durable); a miss on every tier is a normal 404, while
// an engine fault on any tier surfaces as a 500 so a broken store is never
// mistaken for a missing file.
package view
