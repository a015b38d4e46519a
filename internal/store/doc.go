// Package store defines interfaces for persisting inspection results.
// These interfaces abstract the underlying storage mechanism from the task
// orchestration logic, so runners and handlers never depend on where an
// artifact actually lives.
package store
