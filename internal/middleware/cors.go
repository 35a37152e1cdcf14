// Package middleware provides HTTP middleware for the brain dump API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORS returns middleware that handles CORS headers and preflight requests.
// Credentials are only allowed when every origin is explicit; a wildcard
// origin with credentials would let any site act for the user.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300,
	})
	return c.Handler
}
