// Package sinks holds the progress.Sink implementations wired by the app:
// zap logging, Prometheus sweep counters, and sweep run bookkeeping in the
// run repository.
package sinks
