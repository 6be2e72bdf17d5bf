package identity

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wfunc/analogyarena/logger"
	"github.com/wfunc/analogyarena/response"
)

// BearerToken reads "Authorization: Bearer <token>", falling back to ?token=
// for websocket upgrades where browsers cannot set headers.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// OptionalAuth 有 token 就解析，没有或无效也放行
func OptionalAuth(p Provider) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := BearerToken(r); token != "" {
				if uc, err := p.Resolve(r.Context(), token); err == nil {
					r = r.WithContext(WithUser(r.Context(), uc))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests without a valid session.
func RequireAuth(p Provider) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uc, err := p.Resolve(r.Context(), BearerToken(r))
			if err != nil {
				if !errors.Is(err, ErrUnauthenticated) {
					logger.Log.Warnw("resolve token failed", "error", err)
				}
				response.Error(w, http.StatusUnauthorized, ErrUnauthenticated.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), uc)))
		})
	}
}
