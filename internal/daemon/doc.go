// Package daemon coordinates the long-running curator process.
//
// It assembles the pipeline engine, the inbox scanner, the notification
// relay, and the bus-to-log event mirror into a single lifecycle with
// flock-based locking to prevent multiple instances. The daemon also
// runs the periodic maintenance pass and answers dependency health
// probes.
//
// Keep orchestration here: pipeline behavior belongs to the engine and
// its components while the daemon focuses on startup, shutdown, and
// host integration.
package daemon
