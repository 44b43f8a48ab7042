// Package control implements the synchronization controller: it accepts the
// FILE_LIST / CLEAR_PERSISTENCE commands, applies them to the volatile tier
// before returning, and replays them against the durable store on a single
// background worker so durable phases land in the order they were issued.
// Durable failures are logged and never roll back the volatile tier.
package control
