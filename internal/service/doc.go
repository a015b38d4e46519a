// Package service contains the application's use cases. It sits between the
// HTTP handlers and the task, storage and glossary packages, turning
// requests into task submissions, live-feed subscriptions and result
// lookups.
//
// Services receive their dependencies through constructor injection and
// return sentinel errors for expected conditions so the API layer can map
// them to status codes with errors.Is.
package service
