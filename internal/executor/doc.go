// Package executor applies file operations transactionally. Every
// operation in a transaction is validated before the first one touches
// disk, destructive steps are backed up first, and the first apply
// failure rolls back everything already applied in reverse order.
// Backups from delete operations are retained after success so a
// completed transaction can still be undone.
package executor
