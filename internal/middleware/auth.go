package middleware

import (
	"crypto/hmac"
	"net/http"
)

const apiKeyHeader = "X-Api-Key"

// AuthMiddleware проверяет ключ API в заголовке запроса.
// Пустой настроенный ключ отключает проверку.
type AuthMiddleware struct {
	apiKey []byte
}

// NewAuthMiddleware создаёт middleware с указанным ключом API.
func NewAuthMiddleware(apiKey string) *AuthMiddleware {
	return &AuthMiddleware{apiKey: []byte(apiKey)}
}

// Middleware отклоняет запросы без корректного ключа API.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(a.apiKey) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		got := []byte(r.Header.Get(apiKeyHeader))
		if !hmac.Equal(got, a.apiKey) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
