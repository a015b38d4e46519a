// Package api handles incoming HTTP requests, request validation and
// response formatting. It adapts the inspection service to HTTP, including
// the server-sent event stream that relays a task's live feed.
package api
