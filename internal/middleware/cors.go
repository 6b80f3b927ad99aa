package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS 按配置的来源列表放行跨域请求。
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			// credentials cannot be combined with a wildcard origin
			opts.AllowCredentials = false
			break
		}
	}
	return cors.Handler(opts)
}
