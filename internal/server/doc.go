// Package server hosts the Fiber HTTP service and its middleware chain:
// panic recovery, per-request IDs, and the view interception that hands any
// path containing the view marker to the injected ViewHandler. Control and
// diagnostics endpoints live under /-/ and are registered by the routes
// subpackage; everything else falls through to Fiber's default 404.
package server
