// Package filestore provides filesystem-backed implementations of the store
// interfaces. Review results are plain text files named after their task.
package filestore
