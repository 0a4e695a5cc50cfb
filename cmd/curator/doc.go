// Package main hosts the curator CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the foreground daemon, one-shot
// suggestion processing, journal inspection, undo, maintenance, and
// configuration scaffolding. It centralizes configuration resolution
// and instance-lock probing so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the
// internal packages first, then surface it through dedicated commands
// or flags here. The pipeline itself lives behind core.Engine; this
// package only renders its reports.
package main
