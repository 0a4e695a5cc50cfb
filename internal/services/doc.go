// Package services defines shared utilities consumed by the suggestion
// pipeline and the execution components.
//
// Key responsibilities:
//   - Context helpers that stamp batch, transaction, operation, and review
//     entry identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (validation vs safety vs execution vs capacity)
//     consistent across components.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform end to end.
package services
