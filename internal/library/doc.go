// Package library persists enriched catalog records. SQLite is the
// authoritative store; a checkpoint flushes a batch of matched and
// unmatched results in one transaction, and the JSON export files are
// regenerated from the store at each checkpoint.
package library
