// Package approval queues auto-approved suggestions and turns them
// into background batches. It is the pipeline's second safety net:
// items re-clear a stricter confidence floor, a categorical delete
// ban, and an independent dangerous-path rule set before queueing.
// Batches form on a timer and immediately when enough work is waiting.
package approval
