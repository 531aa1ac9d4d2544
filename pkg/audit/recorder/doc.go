// Package recorder turns orchestration reports into audit records and
// writes them to storage off the request path.
//
// Recorder implements routing.Observer. ObserveOrchestration converts the
// report and enqueues it on a bounded channel; a single worker drains the
// channel into the configured audit.Storage. When the channel is full the
// record is dropped and counted, so a slow database never delays a chat
// reply.
//
// Close stops intake and drains whatever is still queued.
package recorder
