// Package checker defines the contract between task orchestration and the
// translation checking process. A Checker turns a set of parameters into a
// finite, lazily produced sequence of events; the orchestration layer never
// depends on how the events are computed.
package checker
