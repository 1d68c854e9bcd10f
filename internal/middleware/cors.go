// Package middleware provides reusable HTTP middleware for the itinerary API.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// AccountIDHeader carries the caller's account id. Authentication happens
// upstream; the API trusts this header.
const AccountIDHeader = "X-Account-ID"

// NewCORSHandler returns a middleware that applies CORS headers based on allowedOrigins.
// Each entry in allowedOrigins must be a full origin (scheme + host, no trailing slash).
// Allowed methods and headers cover the full REST surface of the API.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", AccountIDHeader},
		ExposedHeaders: []string{"Retry-After"},
	})
	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}
