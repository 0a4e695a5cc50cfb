// Package store persists the execution journal in SQLite: transactions
// with their operations (the raw material for undo), categorized
// suggestion history, and the review audit trail. Writes retry on
// SQLITE_BUSY with exponential backoff.
package store
