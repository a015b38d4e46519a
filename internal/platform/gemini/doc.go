// Package gemini provides an inspection.Reviewer backed by Google's Gemini
// API.
//
// Each segment is rendered into a review prompt, sent with a JSON response
// type, and the reply is decoded into an inspection.Verdict. Transient API
// failures are retried with exponential backoff and jitter; blocked or
// malformed responses fail immediately.
package gemini
