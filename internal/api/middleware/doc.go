// Package middleware holds HTTP middleware shared by all routes.
package middleware
