package httpapi

import (
	"context"
	"net/http"
	"strings"

	"bear-monitor/internal/backend/service"
)

type ctxKey int

const userIDKey ctxKey = iota

// Authenticator 校验登录令牌
type Authenticator interface {
	Authenticate(token string) (*service.Claims, error)
}

// RequireAuth 校验 Authorization: Bearer <token>，通过后把用户ID放入 context
func RequireAuth(auth Authenticator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeMessage(w, http.StatusUnauthorized, "No token provided")
			return
		}
		claims, err := auth.Authenticate(strings.TrimSpace(token))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, claims.Subject)))
	}
}

// UserID 当前请求的用户ID
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
