// Package task manages inspection jobs from creation to their terminal event.
//
// A Registry owns every Task for the lifetime of the process. A Runner drives
// a checker for one task on its own goroutine and relays what the checker
// produces into the task's event queue, persisting the final artifact before
// announcing completion. Request handling never waits on a run: callers get
// the task id back immediately and follow progress through the queue.
package task
