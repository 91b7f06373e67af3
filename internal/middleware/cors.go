package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/rs/cors"
)

// DefaultFrontendOrigin is allowed when FRONTEND_URL is unset
const DefaultFrontendOrigin = "http://localhost:3000"

// AllowedOrigins parses a comma-separated origin list, dropping blanks and duplicates
func AllowedOrigins(frontendURL string) []string {
	var origins []string
	for _, o := range strings.Split(frontendURL, ",") {
		o = strings.TrimSpace(o)
		if o != "" && !slices.Contains(origins, o) {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{DefaultFrontendOrigin}
	}
	return origins
}

// CORS allows the household frontend to call the API with credentials
func CORS(frontendURL string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   AllowedOrigins(frontendURL),
		AllowCredentials: true,
		MaxAge:           86400,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
	})
	return c.Handler
}
