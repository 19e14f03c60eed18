// Package pipeline orchestrates a catalog run: scan the rom directory,
// match entries in fixed-size batches, checkpoint incrementally to the
// library store, and regenerate exports. Interrupted runs flush pending
// state best-effort and resume by skipping already-persisted keys.
package pipeline
