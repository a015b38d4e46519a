// Package events defines the progress events produced while an inspection
// task runs and the queue that hands them from the task's runner to its
// live subscriber.
//
// The primary components are:
// - Event: a tagged union of progress, log, complete and error records
// - Queue: an unbounded, ordered, single-producer/single-consumer hand-off
package events
