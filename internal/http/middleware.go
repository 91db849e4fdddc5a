package httpapi

import (
	"context"
	"net/http"
	"strings"

	"vitalwatch/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// AuthMiddleware 校验 Bearer token，将已验证身份放入请求上下文
func AuthMiddleware(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, Fail("authentication required"))
				return
			}

			claims, err := verifier.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, Fail("invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// claimsFromReq 取出已验证身份；中间件缺位时按未认证处理
func claimsFromReq(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := r.Context().Value(claimsKey).(*auth.Claims)
	if !ok || claims == nil {
		writeJSON(w, http.StatusUnauthorized, Fail("authentication required"))
		return nil, false
	}
	return claims, true
}
