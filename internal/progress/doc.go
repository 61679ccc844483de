// Package progress carries two kinds of sweep progress. Reporter is the
// human narration channel (status text plus success and failure notices) and
// never decides how text is shown. Event is the structured stream: the Hub
// batches events on a background goroutine and fans them out to pluggable
// sinks such as Prometheus metrics, structured logs or persistent storage.
package progress
