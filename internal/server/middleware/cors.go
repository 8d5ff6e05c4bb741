package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware разрешает запросы фронтенда с cookie (credentials)
func CORSMiddleware(frontendURL string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return c.Handler
}
